package errors

import (
	stderrors "errors"
	"testing"
)

func TestWrapPreservesCode(t *testing.T) {
	base := ArchiveCorrupt(stderrors.New("bad header"))
	wrapped := Wrap(base, "decompose upload")

	if GetCode(wrapped) != CodeArchiveCorrupt {
		t.Fatalf("wrap should keep the original code, got %s", GetCode(wrapped))
	}
	if !stderrors.Is(wrapped, base) {
		t.Fatal("wrapped error should unwrap to the original")
	}
}

func TestWrapPlainError(t *testing.T) {
	wrapped := Wrap(stderrors.New("boom"), "context")
	if GetCode(wrapped) != CodeInternalError {
		t.Fatalf("plain errors default to internal, got %s", GetCode(wrapped))
	}
	if wrapped.Error() != "context: boom" {
		t.Fatalf("wrong message: %q", wrapped.Error())
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Fatal("wrapping nil must stay nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Fatal("wrapping nil must stay nil")
	}
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeSpreadsheet, stderrors.New("bad cell"))
	if GetCode(err) != CodeSpreadsheet {
		t.Fatalf("code not applied: %s", GetCode(err))
	}

	replaced := WithCode(CodeNotFound, InvalidInput("nope"))
	if GetCode(replaced) != CodeNotFound {
		t.Fatalf("code not replaced: %s", GetCode(replaced))
	}
}

func TestGetCodeUnknown(t *testing.T) {
	if GetCode(stderrors.New("plain")) != "UNKNOWN" {
		t.Fatal("plain errors should report UNKNOWN")
	}
}

func TestConstructors(t *testing.T) {
	if GetCode(ConfigInvalid("x")) != CodeConfigInvalid {
		t.Fatal("ConfigInvalid code wrong")
	}
	if GetCode(RegistryInvalid("x")) != CodeRegistryInvalid {
		t.Fatal("RegistryInvalid code wrong")
	}
	nf := NotFound("domain BCP-001")
	if nf.Error() != "domain BCP-001 not found" {
		t.Fatalf("NotFound message wrong: %q", nf.Error())
	}
}
