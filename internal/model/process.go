package model

import (
	"sort"
	"strings"
)

// ProcessSpec describes a single external process invocation.
type ProcessSpec struct {
	Executable string
	Args       []string
	// Env holds overrides applied on top of the inherited environment.
	// An empty value clears the variable without removing it.
	Env map[string]string
	Dir string
}

// CommandLine renders the invocation as a shell-quoted string for error reports.
func (s ProcessSpec) CommandLine() string {
	parts := make([]string, 0, len(s.Args)+1)
	parts = append(parts, shellQuote(s.Executable))

	for _, arg := range s.Args {
		parts = append(parts, shellQuote(arg))
	}

	return strings.Join(parts, " ")
}

// EnvKeys returns the override keys in sorted order.
func (s ProcessSpec) EnvKeys() []string {
	keys := make([]string, 0, len(s.Env))
	for key := range s.Env {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// ProcessResult holds what a finished process left behind.
type ProcessResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}

	if strings.IndexFunc(s, needsQuoting) < 0 {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}

	return !strings.ContainsRune("-_./=:,+@%", r)
}
