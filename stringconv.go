package config

import (
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// StringConverter turns the text of a back-tick literal into a Value. It
// is consulted by evalToken whenever a BackTick token is evaluated, and
// is pluggable per Config.
type StringConverter interface {
	Convert(cfg *Config, text string, pos Pos) (Value, error)
}

// defaultStringConverter implements the built-in back-tick semantics: an
// ISO date-time, an environment variable reference, or ${path}
// interpolation, tried in that order. Text matching none of them is an
// error under strictConversions and is returned as-is otherwise.
type defaultStringConverter struct{}

var isoDateTimeRe = regexp.MustCompile(
	`^(\d{4})-(\d{2})-(\d{2})` +
		`(?:[ T](\d{2}):(\d{2}):(\d{2})(\.\d+)?)?` +
		`(Z|[+-]\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?)?$`)

var envRefRe = regexp.MustCompile(`^\$([A-Za-z_][A-Za-z0-9_]*)(?:\|(.*))?$`)

var interpRe = regexp.MustCompile(`\$\{([^}]*)\}`)

func (defaultStringConverter) Convert(cfg *Config, text string, pos Pos) (Value, error) {
	if v, ok := parseISODateTime(text); ok {
		return v, nil
	}

	if m := envRefRe.FindStringSubmatch(text); m != nil {
		name, def := m[1], m[2]
		hasDefault := strings.Contains(text, "|")
		if v, ok := os.LookupEnv(name); ok {
			return StringValue(v), nil
		}
		if hasDefault {
			return StringValue(def), nil
		}
		return NoneValue{}, nil
	}

	if interpRe.MatchString(text) {
		var failed error
		out := interpRe.ReplaceAllStringFunc(text, func(m string) string {
			if failed != nil {
				return m
			}
			path := interpRe.FindStringSubmatch(m)[1]
			v, err := lookupInterpolationPath(cfg, path)
			if err != nil {
				failed = err
				return m
			}
			return stringify(v)
		})
		if failed != nil {
			if cfg.strictConversions {
				return nil, errAt(pos, "unable to convert string: %s", text)
			}
			return StringValue(text), nil
		}
		return StringValue(out), nil
	}

	if cfg.strictConversions {
		return nil, errAt(pos, "unable to convert string: %s", text)
	}
	return StringValue(text), nil
}

func lookupInterpolationPath(cfg *Config, path string) (Value, error) {
	node, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	root, steps, err := unpackPath(node)
	if err != nil {
		return nil, err
	}
	v, err := getFromPath(cfg, root, steps)
	if err != nil {
		return nil, err
	}
	return unwrap(v)
}

// parseISODateTime recognizes a date, optionally followed by a time and a
// zone offset, rounding fractional seconds to the nearest nanosecond. A
// date with no zone is treated as naive (UTC).
func parseISODateTime(text string) (DateTimeValue, bool) {
	m := isoDateTimeRe.FindStringSubmatch(text)
	if m == nil {
		return DateTimeValue{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	hour, min, sec := 0, 0, 0
	nsec := 0
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		min, _ = strconv.Atoi(m[5])
		sec, _ = strconv.Atoi(m[6])
		if m[7] != "" {
			frac, _ := strconv.ParseFloat(m[7], 64)
			nsec = int(math.Round(frac * 1e9))
		}
	}

	loc := time.UTC
	if m[8] != "" && m[8] != "Z" {
		t, err := time.Parse("-07:00", m[8][:6])
		if err == nil {
			_, offset := t.Zone()
			loc = time.FixedZone(m[8], offset)
		}
	}

	t := time.Date(year, time.Month(month), day, hour, min, sec, nsec, loc)
	return DateTimeValue(t), true
}
