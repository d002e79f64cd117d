package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestIsIndexNotFound(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("ValidationException: The table does not have the specified index: bySession"), true},
		{errors.New("index byGraph not found"), true},
		{errors.New("throughput exceeded"), false},
	}
	for _, tc := range cases {
		if got := isIndexNotFound(tc.err); got != tc.want {
			t.Fatalf("isIndexNotFound(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestIsNotFoundWrapped(t *testing.T) {
	err := fmt.Errorf("load session: %w", fmt.Errorf("%w in %s", ErrItemNotFound, "ChatSessions"))
	if !IsNotFound(err) {
		t.Fatal("expected wrapped not found to match")
	}
	if IsNotFound(errors.New("item missing")) {
		t.Fatal("unrelated error should not match")
	}
}

func TestConditionalCheckDetection(t *testing.T) {
	err := fmt.Errorf("update: %w", &types.ConditionalCheckFailedException{})
	if !isConditionalCheckFailed(err) {
		t.Fatal("expected conditional check failure to be detected")
	}
}

func TestStringKey(t *testing.T) {
	key := StringKey("pk", "c-1#telegram")
	v, ok := key["pk"].(*types.AttributeValueMemberS)
	if !ok || v.Value != "c-1#telegram" {
		t.Fatalf("unexpected key: %#v", key)
	}
}
