package cli

import (
	"fmt"
	"sort"
	"strings"
)

// keyValueFlag collects repeated name=value flags.
type keyValueFlag map[string]string

func (f keyValueFlag) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + f[k]
	}
	return strings.Join(pairs, ",")
}

func (f keyValueFlag) Set(value string) error {
	name, val, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("expected name=value, got %q", value)
	}
	f[strings.TrimSpace(name)] = val
	return nil
}

// listFlag collects repeated string flags.
type listFlag []string

func (f *listFlag) String() string {
	return strings.Join(*f, ",")
}

func (f *listFlag) Set(value string) error {
	if value == "" {
		return fmt.Errorf("empty value")
	}
	*f = append(*f, value)
	return nil
}
