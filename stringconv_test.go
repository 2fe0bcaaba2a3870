package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestBackTickISODateTime(t *testing.T) {
	cfg, err := FromSource("d: `2024-03-05`\nts: `2024-03-05T10:30:00.5Z`\n")
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	d, err := cfg.Get("d")
	if err != nil {
		t.Fatalf("Get(d): %v", err)
	}
	dt, ok := d.(DateTimeValue)
	if !ok {
		t.Fatalf("d is %T, want DateTimeValue", d)
	}
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if !time.Time(dt).Equal(want) {
		t.Errorf("d = %v, want %v", time.Time(dt), want)
	}

	ts, err := cfg.Get("ts")
	if err != nil {
		t.Fatalf("Get(ts): %v", err)
	}
	tdt, ok := ts.(DateTimeValue)
	if !ok {
		t.Fatalf("ts is %T, want DateTimeValue", ts)
	}
	if time.Time(tdt).Second() != 0 || time.Time(tdt).Nanosecond() != 5e8 {
		t.Errorf("ts = %v, want .5s fractional rounded to 500000000ns", time.Time(tdt))
	}
}

func TestBackTickEnvReference(t *testing.T) {
	os.Setenv("CFG_TEST_VAR", "set-value")
	defer os.Unsetenv("CFG_TEST_VAR")

	cfg, err := FromSource("a: `$CFG_TEST_VAR`\nb: `$CFG_TEST_MISSING|fallback`\nc: `$CFG_TEST_MISSING`\n")
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	if got, err := cfg.Get("a"); err != nil || got != StringValue("set-value") {
		t.Errorf("a = %v, %v; want set-value", got, err)
	}
	if got, err := cfg.Get("b"); err != nil || got != StringValue("fallback") {
		t.Errorf("b = %v, %v; want fallback", got, err)
	}
	got, err := cfg.Get("c")
	if err != nil {
		t.Fatalf("Get(c): %v", err)
	}
	if _, ok := got.(NoneValue); !ok {
		t.Errorf("c = %v (%T), want NoneValue", got, got)
	}
}

func TestBackTickEnvReferenceUnsetIsNotAnErrorUnderStrictConversions(t *testing.T) {
	os.Unsetenv("CFG_TEST_ABSENT")
	cfg, err := FromSource("c: `$CFG_TEST_ABSENT`\n")
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	// strictConversions is the default, but an unset env var with no
	// default still resolves to None rather than raising.
	if _, err := cfg.Get("c"); err != nil {
		t.Errorf("Get(c) = %v, want no error", err)
	}
}

func TestBackTickInterpolation(t *testing.T) {
	src := "a: 'Hello, '\nb: 'world!'\nc: { greeting: `${a}${b}` }\n"
	cfg, err := FromSource(src)
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	got, err := cfg.Get("c.greeting")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != StringValue("Hello, world!") {
		t.Errorf("greeting = %v, want Hello, world!", got)
	}
}

func TestBackTickInterpolationWithList(t *testing.T) {
	src := "items: [1, 2, 3]\nsummary: `items = ${items}`\n"
	cfg, err := FromSource(src)
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	got, err := cfg.Get("summary")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != StringValue("items = [1, 2, 3]") {
		t.Errorf("summary = %v, want %q", got, "items = [1, 2, 3]")
	}
}

func TestBackTickFallbackUnderStrictConversions(t *testing.T) {
	cfg, err := FromSource("a: `just plain text`\n")
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	_, err = cfg.Get("a")
	if err == nil || !strings.Contains(err.Error(), "unable to convert string") {
		t.Errorf("err = %v, want unable to convert string", err)
	}
}

func TestBackTickFallbackUnderRelaxedConversions(t *testing.T) {
	cfg, err := FromSource("a: `just plain text`\n", RelaxedConversions)
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	got, err := cfg.Get("a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != StringValue("just plain text") {
		t.Errorf("a = %v, want the literal text", got)
	}
}

func TestBackTickInterpolationFailureUnderStrictConversions(t *testing.T) {
	cfg, err := FromSource("a: `${missing.path}`\n")
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	_, err = cfg.Get("a")
	if err == nil || !strings.Contains(err.Error(), "unable to convert string") {
		t.Errorf("err = %v, want unable to convert string", err)
	}
}

func TestCustomConverter(t *testing.T) {
	upper := converterFunc(func(cfg *Config, text string, pos Pos) (Value, error) {
		return StringValue(strings.ToUpper(text)), nil
	})
	cfg, err := FromSource("a: `shout`\n", Converter(upper))
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	got, err := cfg.Get("a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != StringValue("SHOUT") {
		t.Errorf("a = %v, want SHOUT", got)
	}
}

type converterFunc func(cfg *Config, text string, pos Pos) (Value, error)

func (f converterFunc) Convert(cfg *Config, text string, pos Pos) (Value, error) {
	return f(cfg, text, pos)
}
