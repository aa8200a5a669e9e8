package security

import (
	"testing"

	"github.com/trubax/trubax-core/internal/domain"
)

func TestDeviceFingerprintStableUnderNormalization(t *testing.T) {
	a := DeviceFingerprint(domain.DeviceInfo{Platform: "Web", Browser: "Firefox", OS: "Linux"})
	b := DeviceFingerprint(domain.DeviceInfo{Platform: " web ", Browser: "FIREFOX", OS: "linux"})
	if a != b {
		t.Fatalf("expected identical fingerprints, got %q and %q", a, b)
	}
}

func TestDeviceFingerprintDistinguishesDevices(t *testing.T) {
	a := DeviceFingerprint(domain.DeviceInfo{Platform: "web", Browser: "firefox", OS: "linux"})
	b := DeviceFingerprint(domain.DeviceInfo{Platform: "web", Browser: "chrome", OS: "linux"})
	if a == b {
		t.Fatal("different browsers must not collide")
	}
}

func TestNewIDUnique(t *testing.T) {
	if NewID() == NewID() {
		t.Fatal("ids must be unique")
	}
}
