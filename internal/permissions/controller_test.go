package permissions

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestGetAccessType(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ctrl := NewController([]int64{1, 2}, logger)

	if got := ctrl.GetAccessType(1); got != Admin {
		t.Fatalf("expected admin access for id 1, got %v", got)
	}
	if got := ctrl.GetAccessType(3); got != Member {
		t.Fatalf("expected member access for id 3, got %v", got)
	}
	if ctrl.IsAdmin(3) {
		t.Fatal("id 3 must not be admin")
	}
}
