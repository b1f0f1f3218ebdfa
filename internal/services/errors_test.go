package services_test

import (
	"errors"
	"strings"
	"testing"

	"captionsync/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrVendor, "bunny", "metadata", "lookup failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrVendor) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"bunny", "metadata", "lookup failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "caption pipeline failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestIsPermanent(t *testing.T) {
	if !services.IsPermanent(services.Wrap(services.ErrNotFound, "storage", "probe", "", nil)) {
		t.Fatal("expected not found to be permanent")
	}
	if services.IsPermanent(services.Wrap(services.ErrTransient, "storage", "probe", "", nil)) {
		t.Fatal("expected transient to be retryable")
	}
	if services.IsPermanent(nil) {
		t.Fatal("nil error is not permanent")
	}
}

func TestResultOutcomes(t *testing.T) {
	ok := services.Success("body", 200)
	if !ok.OK() || ok.AsError() != nil || ok.Value != "body" {
		t.Fatalf("unexpected success result: %+v", ok)
	}

	missing := services.NotFound[string](404)
	if missing.OK() {
		t.Fatal("not found must not be OK")
	}
	if !errors.Is(missing.AsError(), services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", missing.AsError())
	}

	cause := errors.New("connection refused")
	failed := services.VendorError[string](cause, 0)
	if !errors.Is(failed.AsError(), services.ErrVendor) || !errors.Is(failed.AsError(), cause) {
		t.Fatalf("expected vendor error wrapping cause, got %v", failed.AsError())
	}
	if failed.Outcome.String() != "vendor_error" {
		t.Fatalf("unexpected outcome label %q", failed.Outcome.String())
	}
}
