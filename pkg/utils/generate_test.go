package utils

import (
	"strings"
	"testing"
)

func TestGenerateOpaqueToken(t *testing.T) {
	tok, err := GenerateOpaqueToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if len(tok) != 43 { // 32 bytes base64url, no padding
		t.Errorf("token length = %d, want 43", len(tok))
	}
	if strings.ContainsAny(tok, "+/=") {
		t.Errorf("token %q is not URL-safe", tok)
	}

	other, err := GenerateOpaqueToken()
	if err != nil {
		t.Fatalf("generate second token: %v", err)
	}
	if tok == other {
		t.Error("two generated tokens are identical")
	}
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		otp, err := GenerateOTP(6)
		if err != nil {
			t.Fatalf("generate otp: %v", err)
		}
		if len(otp) != 6 {
			t.Fatalf("otp %q length = %d, want 6", otp, len(otp))
		}
		for _, r := range otp {
			if r < '0' || r > '9' {
				t.Fatalf("otp %q contains non-digit %q", otp, r)
			}
		}
	}
}

func TestGenerateOTPDefaultLength(t *testing.T) {
	otp, err := GenerateOTP(0)
	if err != nil {
		t.Fatalf("generate otp: %v", err)
	}
	if len(otp) != 6 {
		t.Errorf("otp length = %d, want default 6", len(otp))
	}
}
