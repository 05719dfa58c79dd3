package logger

import "log/slog"

type Backend string

const (
	BackendStd Backend = "std" // text handler, meant for dev
	BackendZap Backend = "zap" // zap-backed JSON handler with sampling
)

type Config struct {
	// Metadata attached to every record
	Service    string
	Version    string
	InstanceID string

	// Output control
	Level   slog.Level
	Env     Env
	Backend Backend // default: zap for stage/prod, std for dev
	Debug   bool

	// Zap sampling
	SampleInitial    int
	SampleThereafter int

	AddSource bool
}
