package envelope

import (
	"errors"
	"fmt"
	"testing"

	"github.com/agentskills/skillrt/skillerrors"
)

func TestInstructions_ComputesBytesAndSHA256(t *testing.T) {
	t.Parallel()
	r := Instructions("pdf-fill", "hello world", nil)
	if !r.OK || r.Type != TypeInstructions {
		t.Fatalf("unexpected envelope: %+v", r)
	}
	if r.Bytes != int64(len("hello world")) {
		t.Fatalf("got Bytes %d, want %d", r.Bytes, len("hello world"))
	}
	if r.SHA256 == "" {
		t.Fatalf("expected a non-empty sha256")
	}
}

func TestAsset_Base64EncodesContent(t *testing.T) {
	t.Parallel()
	r := Asset("pdf-fill", "assets/logo.png", []byte{0xff, 0x00, 0xab}, "deadbeef", nil)
	if r.Content != "/wCr" {
		t.Fatalf("got base64 content %q, want /wCr", r.Content)
	}
	if r.Bytes != 3 {
		t.Fatalf("got Bytes %d, want 3", r.Bytes)
	}
}

func TestError_MapsKindAndMessage(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("pdf-fill: %w", skillerrors.ErrSkillNotFound)
	r := Error("pdf-fill", err, map[string]any{"extra": 1})
	if r.OK {
		t.Fatalf("expected OK=false for an error envelope")
	}
	if r.Type != TypeError {
		t.Fatalf("got Type %s, want error", r.Type)
	}
	if r.Meta["error_type"] != skillerrors.KindSkillNotFound.ClassName() {
		t.Fatalf("got error_type %v, want %s", r.Meta["error_type"], skillerrors.KindSkillNotFound.ClassName())
	}
	if r.Meta["kind"] != string(skillerrors.KindSkillNotFound) {
		t.Fatalf("got kind %v, want %s", r.Meta["kind"], skillerrors.KindSkillNotFound)
	}
	if r.Meta["extra"] != 1 {
		t.Fatalf("extraDetail was not merged into Meta: %+v", r.Meta)
	}
}

func TestSafe_PassesThroughSuccess(t *testing.T) {
	t.Parallel()
	r := Safe("pdf-fill", func() (Response, error) {
		return Metadata("pdf-fill", []string{"a"}, nil), nil
	})
	if !r.OK || r.Type != TypeMetadata {
		t.Fatalf("unexpected envelope: %+v", r)
	}
}

func TestSafe_ConvertsErrorToEnvelope(t *testing.T) {
	t.Parallel()
	r := Safe("pdf-fill", func() (Response, error) {
		return Response{}, skillerrors.ErrSkillNotFound
	})
	if r.OK {
		t.Fatalf("expected OK=false when fn returns an error")
	}
	if r.Meta["error_type"] != skillerrors.KindSkillNotFound.ClassName() {
		t.Fatalf("got error_type %v, want %s", r.Meta["error_type"], skillerrors.KindSkillNotFound.ClassName())
	}
}

func TestSafe_RecoversPanicAsInternalError(t *testing.T) {
	t.Parallel()
	r := Safe("pdf-fill", func() (Response, error) {
		panic("boom")
	})
	if r.OK {
		t.Fatalf("expected OK=false after a recovered panic")
	}
	if r.Meta["error_type"] != skillerrors.KindInternalError.ClassName() {
		t.Fatalf("got error_type %v, want %s", r.Meta["error_type"], skillerrors.KindInternalError.ClassName())
	}
}

func TestKindOf_UnknownErrorDefaultsToInternal(t *testing.T) {
	t.Parallel()
	if got := skillerrors.KindOf(errors.New("mystery")); got != skillerrors.KindInternalError {
		t.Fatalf("got %s, want %s", got, skillerrors.KindInternalError)
	}
}
