package errors

import (
	"errors"
	"io"
	"testing"
)

func TestDatabaseError(t *testing.T) {
	err := NewDatabaseError("read block", "cscope.out", 8192, io.ErrUnexpectedEOF)

	if err.Type != ErrorTypeIO {
		t.Errorf("Expected Type to be ErrorTypeIO, got %v", err.Type)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Expected error to unwrap to underlying error")
	}

	expectedMsg := "io read block failed for cscope.out at offset 8192: unexpected EOF"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
	if IsFatal(err) {
		t.Errorf("I/O errors must not be fatal")
	}
}

func TestQueryErrorClassifiesCause(t *testing.T) {
	notSym := NewQueryError("a b", ErrNotASymbol)
	if notSym.Type != ErrorTypeNotSymbol {
		t.Errorf("Expected not_symbol, got %v", notSym.Type)
	}

	wrapped := NewQueryError("(", errors.Join(ErrRegexCompile, errors.New("missing )")))
	if wrapped.Type != ErrorTypeRegex {
		t.Errorf("Expected regex, got %v", wrapped.Type)
	}
	if !errors.Is(wrapped, ErrRegexCompile) {
		t.Errorf("Expected errors.Is to find ErrRegexCompile")
	}

	other := NewQueryError("x", ErrNoQuery)
	if other.Type != ErrorTypeSearch {
		t.Errorf("Expected search, got %v", other.Type)
	}
}

func TestFormatErrorIsFatal(t *testing.T) {
	err := NewFormatError("cscope.out", 42, "source line does not start with a line number")
	if !IsFatal(err) {
		t.Errorf("Expected format error to be fatal")
	}

	var wrapped error = NewMultiError([]error{err})
	if !IsFatal(wrapped) {
		t.Errorf("Expected fatal error to be found through MultiError")
	}
}

func TestConfigError(t *testing.T) {
	underlying := errors.New("must be positive")
	err := NewConfigError("database.block_size", "-1", underlying)

	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap")
	}
	expected := "config error for field database.block_size (value -1): must be positive"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}

func TestMultiError(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	multi := NewMultiError([]error{err1, nil, err2})
	if len(multi.Errors) != 2 {
		t.Errorf("Expected nil errors to be filtered, got %d", len(multi.Errors))
	}
	if !errors.Is(multi, err2) {
		t.Errorf("Expected errors.Is to see every error")
	}

	if NewMultiError(nil).ErrorOrNil() != nil {
		t.Errorf("Expected ErrorOrNil to be nil for empty set")
	}
	if NewMultiError([]error{err1}).Error() != "first" {
		t.Errorf("Expected single error message to pass through")
	}
}
