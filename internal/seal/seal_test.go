package seal

import "testing"

// ===== 1. SEAL AND VERIFY =====

func TestSealVerify(t *testing.T) {
	t.Run("string payload round trip", func(t *testing.T) {
		env, err := Seal("123456", "final report text", map[string]string{"duration_ms": "42"})
		if err != nil {
			t.Fatalf("seal failed: %v", err)
		}
		if env.Header.Version != Version {
			t.Fatalf("version = %q, want %q", env.Header.Version, Version)
		}
		ok, err := Verify(env)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatal("fresh envelope did not verify")
		}
	})

	t.Run("structured payload round trip", func(t *testing.T) {
		payload := map[string]any{"result": "ok", "items": []int{1, 2, 3}}
		env, err := Seal("123456", payload, nil)
		if err != nil {
			t.Fatalf("seal failed: %v", err)
		}
		ok, err := Verify(env)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatal("structured envelope did not verify")
		}
	})
}

// ===== 2. TAMPER DETECTION =====

func TestTamperDetection(t *testing.T) {
	fresh := func(t *testing.T) *Envelope {
		t.Helper()
		env, err := Seal("123456", "report", map[string]string{"cost": "7"})
		if err != nil {
			t.Fatal(err)
		}
		return env
	}

	t.Run("payload swap", func(t *testing.T) {
		env := fresh(t)
		env.Body.Payload = "altered report"
		if ok, _ := Verify(env); ok {
			t.Fatal("altered payload verified")
		}
	})

	t.Run("fingerprint swap", func(t *testing.T) {
		env := fresh(t)
		env.Header.TraceT = "654321"
		if ok, _ := Verify(env); ok {
			t.Fatal("altered fingerprint verified")
		}
	})

	t.Run("metrics swap", func(t *testing.T) {
		env := fresh(t)
		env.Body.Metrics["cost"] = "0"
		if ok, _ := Verify(env); ok {
			t.Fatal("altered metrics verified")
		}
	})

	t.Run("unknown version rejected", func(t *testing.T) {
		env := fresh(t)
		env.Header.Version = "v9.9"
		if _, err := Verify(env); err == nil {
			t.Fatal("unknown version accepted")
		}
	})
}
