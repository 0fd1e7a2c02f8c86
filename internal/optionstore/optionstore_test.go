package optionstore

import "testing"

// ── Set / Get ────────────────────────────────────────────────────────────────

func TestStore_GetUnsetKeyReportsNotOK(t *testing.T) {
	s := New(nil)
	_, ok := s.Get("screencap_method")
	if ok {
		t.Error("expected ok=false for unset key")
	}
}

func TestStore_SetThenGetRoundTrips(t *testing.T) {
	s := New(nil)
	s.Set("input_method", "maatouch")
	got, ok := s.Get("input_method")
	if !ok || got != "maatouch" {
		t.Errorf("Get() = (%q, %v), want (\"maatouch\", true)", got, ok)
	}
}

func TestStore_NewSeedsDefaults(t *testing.T) {
	s := New(map[string]string{"log_dir": "/var/log/autoloom"})
	got, ok := s.Get("log_dir")
	if !ok || got != "/var/log/autoloom" {
		t.Errorf("Get() = (%q, %v), want (\"/var/log/autoloom\", true)", got, ok)
	}
}

func TestStore_ZeroValueIsUsableEmpty(t *testing.T) {
	var s Store
	s.Set("recording", "true")
	if got, ok := s.Get("recording"); !ok || got != "true" {
		t.Errorf("Get() on zero-value Store = (%q, %v)", got, ok)
	}
}

// ── GetOr ────────────────────────────────────────────────────────────────────

func TestStore_GetOrFallsBackWhenUnset(t *testing.T) {
	s := New(nil)
	if got := s.GetOr("default_app_package", "com.example.app"); got != "com.example.app" {
		t.Errorf("GetOr() = %q, want fallback", got)
	}
}

func TestStore_GetOrPrefersSetValue(t *testing.T) {
	s := New(nil)
	s.Set("default_app_package", "com.other.app")
	if got := s.GetOr("default_app_package", "com.example.app"); got != "com.other.app" {
		t.Errorf("GetOr() = %q, want set value", got)
	}
}

// ── GetBool / GetInt ─────────────────────────────────────────────────────────

func TestStore_GetBoolParsesTruthyValues(t *testing.T) {
	s := New(nil)
	s.Set("save_draw_debug", "1")
	if !s.GetBool("save_draw_debug", false) {
		t.Error("expected GetBool to parse \"1\" as true")
	}
}

func TestStore_GetBoolDefaultsOnUnsetOrUnparseable(t *testing.T) {
	s := New(nil)
	if !s.GetBool("missing", true) {
		t.Error("expected default true for unset key")
	}
	s.Set("garbage", "not-a-bool")
	if s.GetBool("garbage", true) != true {
		t.Error("expected default on unparseable value")
	}
}

func TestStore_GetIntParsesAndDefaults(t *testing.T) {
	s := New(nil)
	s.Set("retry_count", "3")
	if got := s.GetInt("retry_count", 0); got != 3 {
		t.Errorf("GetInt() = %d, want 3", got)
	}
	if got := s.GetInt("unset", 7); got != 7 {
		t.Errorf("GetInt() default = %d, want 7", got)
	}
}

// ── FromEnvTier ──────────────────────────────────────────────────────────────

func TestFromEnvTier_PrefersTieredKeyOverFallback(t *testing.T) {
	t.Setenv("CONTROLLER_INFERENCE_DEVICE", "gpu0")
	t.Setenv("INFERENCE_DEVICE", "cpu")
	got := FromEnvTier("CONTROLLER", "INFERENCE_DEVICE", "INFERENCE_DEVICE")
	if got != "gpu0" {
		t.Errorf("FromEnvTier() = %q, want tiered value", got)
	}
}

func TestFromEnvTier_FallsBackWhenTieredUnset(t *testing.T) {
	t.Setenv("INFERENCE_DEVICE", "cpu")
	got := FromEnvTier("RESOURCE", "INFERENCE_DEVICE", "INFERENCE_DEVICE")
	if got != "cpu" {
		t.Errorf("FromEnvTier() = %q, want fallback value", got)
	}
}

func TestFromEnvTier_EmptyPrefixSkipsTieredLookup(t *testing.T) {
	t.Setenv("INFERENCE_DEVICE", "cpu")
	got := FromEnvTier("", "INFERENCE_DEVICE", "INFERENCE_DEVICE")
	if got != "cpu" {
		t.Errorf("FromEnvTier() = %q, want fallback value", got)
	}
}
