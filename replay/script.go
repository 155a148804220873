// Package replay drives a layer with scripted call sequences.
//
// A script is YAML. Handles are symbolic: a step's out list binds names to
// the handles the driver returns, and later args refer to them.
//
//	steps:
//	  - call: vkCreateInstance
//	    out: [$inst]
//	  - call: vkEnumeratePhysicalDevices
//	    args: [$inst]
//	    out: [$gpu]
//	  - call: vkDestroyInstance
//	    args: [$inst]
//	    expect:
//	      result: VK_SUCCESS
//	      violations: []
package replay

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/vk"
)

// Script is a named sequence of calls.
type Script struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step is one call.
type Step struct {
	Expect *Expect `yaml:"expect"`

	Call string `yaml:"call"`

	// Fail makes the driver return this result instead of running the call.
	Fail string `yaml:"fail"`

	Args []Arg `yaml:"args"`

	// Out names the handles the call produces, in order.
	Out []string `yaml:"out"`

	Count  int    `yaml:"count"`
	Thread uint64 `yaml:"thread"`
}

// Expect asserts on a step's outcome. A nil Violations list is not
// checked; an empty one requires a clean call.
type Expect struct {
	Result     string        `yaml:"result"`
	Violations []errors.Kind `yaml:"violations"`
}

// Arg is one handle argument: a symbol, a literal, null, or a list of
// those.
type Arg struct {
	Items []string
	List  bool
}

func (a *Arg) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		a.Items = []string{n.Value}
		return nil
	case yaml.SequenceNode:
		a.List = true
		a.Items = make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return errors.InvalidInput(errors.PhaseReplay, "nested list in args at line "+strconv.Itoa(item.Line))
			}
			a.Items = append(a.Items, item.Value)
		}
		return nil
	}
	return errors.InvalidInput(errors.PhaseReplay, "arg must be a scalar or a list at line "+strconv.Itoa(n.Line))
}

func (a Arg) MarshalYAML() (any, error) {
	if a.List {
		return a.Items, nil
	}
	if len(a.Items) == 0 {
		return "null", nil
	}
	return a.Items[0], nil
}

// Parse decodes and checks a script.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.PhaseReplay, errors.KindInvalidInput, err, "parse script")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseReplay, errors.KindNotFound, err, "read "+path)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}

// Validate checks that every step names a call and that results parse.
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return errors.InvalidInput(errors.PhaseReplay, "script has no steps")
	}
	for i, st := range s.Steps {
		at := "step " + strconv.Itoa(i+1)
		if st.Call == "" {
			return errors.InvalidInput(errors.PhaseReplay, at+": missing call")
		}
		if st.Fail != "" {
			if _, ok := vk.ParseResult(st.Fail); !ok {
				return errors.InvalidInput(errors.PhaseReplay, at+": unknown result "+st.Fail)
			}
		}
		if st.Expect != nil && st.Expect.Result != "" {
			if _, ok := vk.ParseResult(st.Expect.Result); !ok {
				return errors.InvalidInput(errors.PhaseReplay, at+": unknown result "+st.Expect.Result)
			}
		}
		for _, name := range st.Out {
			if !isSymbol(name) {
				return errors.InvalidInput(errors.PhaseReplay, at+": out name "+name+" must start with $")
			}
		}
	}
	return nil
}

func isSymbol(s string) bool {
	return len(s) > 1 && s[0] == '$'
}

// literal parses null, 0 and numeric handle literals.
func literal(s string) (vk.Handle, bool) {
	switch strings.ToLower(s) {
	case "null", "~", "":
		return vk.NullHandle, true
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, false
	}
	return vk.Handle(n), true
}
