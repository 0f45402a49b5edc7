package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// setter applies one scalar value of a section to cfg.
type setter func(cfg *Config, val string) error

// sections maps every supported "section.key" to its setter.
var sections = map[string]map[string]setter{
	"database": {
		"host":     func(c *Config, v string) error { c.Database.Host = v; return nil },
		"port":     intInto(func(c *Config) *int { return &c.Database.Port }),
		"user":     func(c *Config, v string) error { c.Database.User = v; return nil },
		"password": func(c *Config, v string) error { c.Database.Password = v; return nil },
		"database": func(c *Config, v string) error { c.Database.Name = v; return nil },
	},
	"rabbitmq": {
		"host":     func(c *Config, v string) error { c.RabbitMQ.Host = v; return nil },
		"port":     intInto(func(c *Config) *int { return &c.RabbitMQ.Port }),
		"user":     func(c *Config, v string) error { c.RabbitMQ.User = v; return nil },
		"password": func(c *Config, v string) error { c.RabbitMQ.Password = v; return nil },
	},
	"services": {
		"order_poller":         intInto(func(c *Config) *int { return &c.Services.OrderPollerPort }),
		"notification_gateway": intInto(func(c *Config) *int { return &c.Services.NotificationGatewayPort }),
	},
	"jwt": {
		"secret_key": func(c *Config, v string) error { c.JWT.SecretKey = v; return nil },
		"dev_tokens": boolInto(func(c *Config) *bool { return &c.JWT.DevTokens }),
	},
	"backend": {
		"timeout_seconds": durationInto(time.Second, func(c *Config) *time.Duration { return &c.Backend.Timeout }),
		"language":        func(c *Config, v string) error { c.Backend.Language = v; return nil },
		"currency":        func(c *Config, v string) error { c.Backend.Currency = strings.ToUpper(v); return nil },
	},
	"poller": {
		"namespace":             func(c *Config, v string) error { c.Poller.Namespace = v; return nil },
		"prefetch":              intInto(func(c *Config) *int { return &c.Poller.Prefetch }),
		"recurring_minutes":     durationInto(time.Minute, func(c *Config) *time.Duration { return &c.Poller.RecurringEvery }),
		"retry_initial_seconds": durationInto(time.Second, func(c *Config) *time.Duration { return &c.Poller.RetryInitial }),
		"retry_max_seconds":     durationInto(time.Second, func(c *Config) *time.Duration { return &c.Poller.RetryMax }),
		"max_attempts":          intInto(func(c *Config) *int { return &c.Poller.RetryMaxAttempt }),
		"burst_seconds": func(c *Config, v string) error {
			delays, err := parseSecondsList(v)
			if err != nil {
				return err
			}
			c.Poller.BurstDelays = delays
			return nil
		},
	},
}

// parseYAML parses the two-level mapping used by config.yaml.
func parseYAML(r io.Reader, cfg *Config) error {
	scanner := bufio.NewScanner(r)

	var cur string
	lineNo := 0
	seenTop := map[string]bool{}

	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()

		// strip comments
		if i := strings.IndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}

		line := strings.TrimRight(raw, " \t\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		// top-level section? (no leading spaces)
		if line[0] != ' ' && line[0] != '\t' {
			name := strings.TrimSuffix(strings.TrimSpace(line), ":")
			if _, ok := sections[name]; !ok || !strings.HasSuffix(strings.TrimSpace(line), ":") {
				return fmt.Errorf("line %d: unknown top-level key %q", lineNo, name)
			}
			if seenTop[name] {
				return fmt.Errorf("line %d: duplicate '%s' section", lineNo, name)
			}
			seenTop[name] = true
			cur = name
			continue
		}

		// expect indented "key: value"
		if cur == "" {
			return fmt.Errorf("line %d: key without a section", lineNo)
		}
		trim := strings.TrimSpace(line)
		colon := strings.IndexByte(trim, ':')
		if colon <= 0 {
			return fmt.Errorf("line %d: expected 'key: value'", lineNo)
		}
		key := strings.TrimSpace(trim[:colon])
		val := resolveScalar(trim[colon+1:])

		set, ok := sections[cur][key]
		if !ok {
			return fmt.Errorf("line %d: unknown key in %s: %q", lineNo, cur, key)
		}
		if err := set(cfg, val); err != nil {
			return fmt.Errorf("line %d: %s.%s: %v", lineNo, cur, key, err)
		}
	}

	return scanner.Err()
}

func intInto(field func(*Config) *int) setter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("must be int: %v", err)
		}
		*field(c) = n
		return nil
	}
}

func boolInto(field func(*Config) *bool) setter {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("must be bool: %v", err)
		}
		*field(c) = b
		return nil
	}
}

func durationInto(unit time.Duration, field func(*Config) *time.Duration) setter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("must be int: %v", err)
		}
		*field(c) = time.Duration(n) * unit
		return nil
	}
}

// parseSecondsList reads "15, 30, 45" into durations. An empty list disables the burst.
func parseSecondsList(v string) ([]time.Duration, error) {
	v = strings.Trim(strings.TrimSpace(v), "[]")
	out := []time.Duration{}
	if strings.TrimSpace(v) == "" {
		return out, nil
	}
	for _, part := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("must be a comma separated list of ints: %v", err)
		}
		out = append(out, time.Duration(n)*time.Second)
	}
	return out, nil
}

// resolveScalar trims whitespace and removes surrounding quotes from YAML-like scalars.
// For example:
//
//	"localhost"  -> localhost
//	'password123' -> password123
//	localhost     -> localhost
func resolveScalar(s string) string {
	s = strings.TrimSpace(s)

	// if value is quoted with "..." or '...', remove quotes safely
	n := len(s)
	if n >= 2 {
		if (s[0] == '"' && s[n-1] == '"') || (s[0] == '\'' && s[n-1] == '\'') {
			if unq, err := strconv.Unquote(s); err == nil {
				return unq
			}
			return s[1 : n-1]
		}
	}

	return s
}
