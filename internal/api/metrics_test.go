package api

import "testing"

func TestSanitizePathMasksIdentifiers(t *testing.T) {
	cases := map[string]string{
		"":  "/",
		"/": "/",
		"/api/admin/v1/sessions": "/api/admin/v1/sessions",
		"/api/admin/v1/sessions/4f1c2a9e-7d3b-4a8e-9c1f-2b5d6e7f8a90/messages": "/api/admin/v1/sessions/:id/messages",
		"/api/admin/v1/flows/f-123/nodes/message-1a2b3c4d":                      "/api/admin/v1/flows/f-123/nodes/...",
		"/api/admin/v1/sessions/unread-count":                                   "/api/admin/v1/sessions/unread-count",
	}
	for in, want := range cases {
		if got := sanitizePath(in); got != want {
			t.Fatalf("sanitizePath(%q) = %q, want %q", in, got, want)
		}
	}
}
