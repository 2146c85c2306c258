package main

import (
	"strconv"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
)

const (
	placeholderSeries = "__series__"
	placeholderTS     = "__ts__"
	placeholderValue  = "__value__"
	placeholderKey    = "__key__"
	placeholderData   = "__data__"
)

// sizeListFlag accepts repeated or comma separated positive sizes. The first
// explicit value replaces the defaults.
type sizeListFlag struct {
	dst     *[]int
	touched bool
}

func (s *sizeListFlag) String() string {
	if s.dst == nil {
		return ""
	}
	parts := make([]string, len(*s.dst))
	for i, n := range *s.dst {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func (s *sizeListFlag) Set(value string) error {
	if !s.touched {
		*s.dst = nil
		s.touched = true
	}
	for _, raw := range strings.Split(value, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return errors.Wrapf(err, "invalid data size %q", raw)
		}
		if n <= 0 {
			return errors.Errorf("data size must be positive, got %d", n)
		}
		*s.dst = append(*s.dst, n)
	}
	return nil
}

// hostFlag points every endpoint at the same host.
type hostFlag struct {
	cfg *Config
}

func (h *hostFlag) String() string {
	if h.cfg == nil {
		return ""
	}
	return h.cfg.Reference.Host
}

func (h *hostFlag) Set(value string) error {
	h.cfg.Reference.Host = value
	h.cfg.Subject.Host = value
	h.cfg.Single.Host = value
	return nil
}

// placeholders are the per-operation substitutions of a command template.
type placeholders struct {
	series string
	ts     string
	value  string
	key    string
	data   string
}

func (p placeholders) replace(arg string) string {
	for _, kv := range [...][2]string{
		{placeholderSeries, p.series},
		{placeholderTS, p.ts},
		{placeholderValue, p.value},
		{placeholderKey, p.key},
		{placeholderData, p.data},
	} {
		arg = strings.ReplaceAll(arg, kv[0], kv[1])
	}
	return arg
}

type commandTemplate struct {
	raw  string
	args []string
}

func parseCommandTemplate(raw string) (commandTemplate, error) {
	args, err := shellwords.Parse(raw)
	if err != nil {
		return commandTemplate{}, errors.Wrapf(err, "parse command template %q", raw)
	}
	if len(args) == 0 {
		return commandTemplate{}, errors.Errorf("empty command template")
	}
	return commandTemplate{raw: raw, args: args}, nil
}

// expand substitutes placeholders and joins the arguments with single spaces.
// Quoted arguments keep their inner spaces, which the RESP encoder will split.
func (t commandTemplate) expand(p placeholders) string {
	var b strings.Builder
	for i, arg := range t.args {
		if i > 0 {
			b.WriteByte(' ')
		}
		if strings.Contains(arg, "__") {
			arg = p.replace(arg)
		}
		b.WriteString(arg)
	}
	return b.String()
}

type commandTemplates struct {
	write, read, set, get commandTemplate
}

func parseCommandSet(cs CommandSet) (commandTemplates, error) {
	var (
		out commandTemplates
		err error
	)
	for _, f := range []struct {
		name string
		raw  string
		dst  *commandTemplate
	}{
		{"write", cs.Write, &out.write},
		{"read", cs.Read, &out.read},
		{"set", cs.Set, &out.set},
		{"get", cs.Get, &out.get},
	} {
		if *f.dst, err = parseCommandTemplate(f.raw); err != nil {
			return out, errors.Wrapf(err, "%s command", f.name)
		}
	}
	return out, nil
}
