package runner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tapewire/fixconf/internal/expand"
	"github.com/tapewire/fixconf/internal/expr"
	"github.com/tapewire/fixconf/internal/fixmsg"
)

var placeholderRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// resolvePlaceholders substitutes ${tag} and ${caseID.tag} references in a
// message's values before it is sent. ${tag} reads from the message itself;
// ${caseID.tag} reads from the message previously sent for that case, which
// lets a later row reference an earlier order's identifier.
func resolvePlaceholders(msg *fixmsg.Message, sent map[string]*fixmsg.Message) (*fixmsg.Message, error) {
	out := msg
	for _, f := range msg.Fields() {
		if !strings.Contains(f.Value, "${") {
			continue
		}
		resolved, err := resolveValue(f.Value, out, sent)
		if err != nil {
			return nil, fmt.Errorf("tag %d: %w", f.Tag, err)
		}
		out = out.Set(f.Tag, resolved)
	}
	return out, nil
}

// resolveExpectations substitutes placeholder references in expected values,
// against the resolved outbound message and previously sent messages. A
// substituted candidate is reclassified, so 11=${11} compares the response's
// tag 11 literally against the generated identifier.
func resolveExpectations(expect []expand.TagExpectation, msg *fixmsg.Message, sent map[string]*fixmsg.Message) ([]expand.TagExpectation, error) {
	out := expect
	copied := false
	for i, te := range expect {
		if !strings.Contains(te.Value.Raw, "${") {
			continue
		}
		raw, err := resolveValue(te.Value.Raw, msg, sent)
		if err != nil {
			return nil, fmt.Errorf("expected tag %d: %w", te.Tag, err)
		}
		v, err := expr.NewExpectValue(raw)
		if err != nil {
			return nil, fmt.Errorf("expected tag %d: %w", te.Tag, err)
		}
		if !copied {
			out = make([]expand.TagExpectation, len(expect))
			copy(out, expect)
			copied = true
		}
		out[i].Value = v
	}
	return out, nil
}

func resolveValue(value string, msg *fixmsg.Message, sent map[string]*fixmsg.Message) (string, error) {
	var resolveErr error
	resolved := placeholderRe.ReplaceAllStringFunc(value, func(m string) string {
		ref := m[2 : len(m)-1]
		v, err := lookupRef(ref, msg, sent)
		if err != nil && resolveErr == nil {
			resolveErr = err
		}
		return v
	})
	return resolved, resolveErr
}

func lookupRef(ref string, msg *fixmsg.Message, sent map[string]*fixmsg.Message) (string, error) {
	caseID, tagStr, qualified := strings.Cut(ref, ".")
	if !qualified {
		tagStr = ref
	}

	tag, err := strconv.Atoi(tagStr)
	if err != nil || tag <= 0 {
		return "", fmt.Errorf("placeholder ${%s}: %q is not a tag", ref, tagStr)
	}

	source := msg
	if qualified {
		var ok bool
		source, ok = sent[caseID]
		if !ok {
			return "", fmt.Errorf("placeholder ${%s}: no message was sent for case %q", ref, caseID)
		}
	}

	v, ok := source.Get(tag)
	if !ok {
		return "", fmt.Errorf("placeholder ${%s}: tag %d not found", ref, tag)
	}
	return v, nil
}
