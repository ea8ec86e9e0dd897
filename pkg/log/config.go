package log

import (
	"fmt"
	"strings"
)

// Config declares how a process-wide logger is built.
type Config struct {
	// Level is one of debug|info|warn|error.
	Level string
	// Format is text|json.
	Format string
	// Outputs lists sinks: console, null, syslog, or file:<path>.
	// Empty means console.
	Outputs []string
	// Color forces coloured text output; when unset it follows IsTerminal.
	Color *bool
	// Redact lists field keys whose values are masked.
	Redact []string
	// SampleInitial/SampleThereafter enable per-message sampling when
	// SampleThereafter > 0.
	SampleInitial    int
	SampleThereafter int
	// SyslogTag is the program tag for the syslog output.
	SyslogTag string
}

// ParseLevel converts a level name into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// ApplyConfig builds a Logger from cfg.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	useColor := IsTerminal()
	if cfg.Color != nil {
		useColor = *cfg.Color
	}

	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		formatter = &TextFormatter{Color: useColor}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	opts := []LoggerOption{WithLevel(level), WithFormatter(formatter)}
	specs := cfg.Outputs
	if len(specs) == 0 {
		specs = []string{"console"}
	}
	for _, spec := range specs {
		out, err := buildOutput(spec, cfg)
		if err != nil {
			return nil, err
		}
		if so, ok := out.(*SyslogOutput); ok {
			so.Formatter = syslogFormatter(formatter)
		}
		opts = append(opts, WithOutput(out))
	}
	if len(cfg.Redact) > 0 {
		opts = append(opts, WithRedaction(cfg.Redact...))
	}
	if cfg.SampleThereafter > 0 {
		opts = append(opts, WithSampling(cfg.SampleInitial, cfg.SampleThereafter))
	}
	return NewLogger(opts...), nil
}

// syslogFormatter derives the formatter for a syslog sink from the logger's.
// syslog stamps its own time and does not render colours.
func syslogFormatter(f Formatter) Formatter {
	if tf, ok := f.(*TextFormatter); ok {
		return &TextFormatter{DisableTimestamp: true, ShowCaller: tf.ShowCaller}
	}
	return nil
}

func buildOutput(spec string, cfg *Config) (Output, error) {
	switch {
	case spec == "console":
		return NewConsoleOutput(), nil
	case spec == "null":
		return NullOutput{}, nil
	case spec == "syslog":
		tag := cfg.SyslogTag
		if tag == "" {
			tag = "aesdsocket"
		}
		return NewSyslogOutput(tag)
	case strings.HasPrefix(spec, "file:"):
		path := strings.TrimPrefix(spec, "file:")
		if path == "" {
			return nil, fmt.Errorf("log output %q: missing path", spec)
		}
		return NewFileOutput(path)
	default:
		return nil, fmt.Errorf("unknown log output %q", spec)
	}
}
