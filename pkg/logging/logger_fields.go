package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Component field helpers for common component names
func Component(name string) Field {
	return String("component", name)
}

// Domain field helpers

func PoleID(id string) Field {
	return String("pole_id", id)
}

func ConductorID(from, to string) Field {
	return String("conductor", from+"->"+to)
}

func SpecID(id string) Field {
	return String("spec_id", id)
}

func Site(name string) Field {
	return String("site", name)
}

func Check(name string) Field {
	return String("check", name)
}

func Confidence(c float64) Field {
	return Float64("confidence", c)
}

func Count(n int) Field {
	return Int("count", n)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}
