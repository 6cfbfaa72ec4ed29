package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{Unauthenticated("no session"), KindUnauthenticated},
		{AccessDenied("nope"), KindAccessDenied},
		{NotFound("missing"), KindNotFound},
		{InvariantViolation("last owner"), KindInvariantViolation},
		{BadRequest("bad id"), KindBadRequest},
		{errors.New("plain"), KindInternal},
		{fmt.Errorf("wrapped: %w", NotFound("inner")), KindNotFound},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestIsKind(t *testing.T) {
	err := AccessDenied("denied")
	if !IsKind(err, KindAccessDenied) {
		t.Error("IsKind should match the carried kind")
	}
	if IsKind(err, KindNotFound) {
		t.Error("IsKind should not match other kinds")
	}
	if IsKind(errors.New("plain"), KindInternal) {
		t.Error("a non-core error carries no kind, not even internal")
	}
}

func TestMessageIsErrorString(t *testing.T) {
	err := InvariantViolation("Cannot remove the last owner from the project")
	if err.Error() != "Cannot remove the last owner from the project" {
		t.Errorf("Error() = %q", err.Error())
	}
}
