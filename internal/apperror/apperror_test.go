package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	base := errors.New("dynamo timeout")
	err := fmt.Errorf("append: %w", PersistFailed("failed to store message", base))

	if !IsCode(err, CodePersistFailed) {
		t.Fatal("expected persist_failed code through wrap")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatal("unexpected not_found match")
	}
	if !errors.Is(err, base) {
		t.Fatal("expected underlying error to be reachable")
	}
}

func TestAsReturnsFalseForPlainErrors(t *testing.T) {
	if _, ok := As(errors.New("plain")); ok {
		t.Fatal("plain error should not convert")
	}
	if IsCode(nil, CodeInternal) {
		t.Fatal("nil error should not match")
	}
}
