package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dionysius/venvpack/debversion"
)

// DebianValue holds a parsed Debian version.
type DebianValue struct {
	V *debversion.Version
}

func (v DebianValue) String() string {
	return v.V.String()
}

func (v DebianValue) Compare(other Value) (int, error) {
	o, ok := other.(DebianValue)
	if !ok {
		return 0, fmt.Errorf("%w: cannot compare %s with %T", ErrFormatMismatch, FormatDebian, other)
	}
	c, err := debversion.Compare(v.V, o.V)
	if err != nil {
		return 0, &InvalidVersionError{Format: FormatDebian, Version: v.V.String(), Err: err}
	}
	return c, nil
}

func (v DebianValue) Fields() map[string]string {
	return map[string]string{
		"epoch":    strconv.FormatUint(v.V.Epoch(), 10),
		"upstream": v.V.Upstream(),
		"revision": v.V.Revision(),
	}
}

// DebianParser handles Debian package versions.
type DebianParser struct{}

func NewDebianParser() *DebianParser {
	return &DebianParser{}
}

func (p *DebianParser) Format() Format {
	return FormatDebian
}

func (p *DebianParser) Parse(raw string) (Container, error) {
	v, err := debversion.Parse(raw)
	if err != nil {
		return Container{}, &InvalidVersionError{Format: FormatDebian, Version: raw, Err: err}
	}
	return Container{Value: DebianValue{V: v}, ParsedBy: FormatDebian}, nil
}

func (p *DebianParser) Serialize(c Container) (string, error) {
	if err := checkFormat(c, FormatDebian); err != nil {
		return "", err
	}
	return c.Value.String(), nil
}

func (p *DebianParser) Deserialize(raw string) (Container, error) {
	return p.Parse(raw)
}

// CanConvertFrom reports foreign formats as lossless. A '-' left in a SemVer
// prerelease or build metadata after the first one is rewritten still reads
// as the Debian revision separator, so 1.0.0+a-b becomes upstream 1.0.0+a
// with revision b.
func (p *DebianParser) CanConvertFrom(from Format) Capability {
	switch from {
	case FormatSemVer, FormatPEP440, FormatRegex:
		return lossless
	}
	return identity(FormatDebian, from)
}

func (p *DebianParser) CanConvertTo(to Format) Capability {
	return identity(FormatDebian, to)
}

func (p *DebianParser) ConvertFrom(c Container) (Container, error) {
	switch c.ParsedBy {
	case FormatDebian:
		return c, nil
	case FormatSemVer, FormatRegex:
		sv, err := semverOf(c)
		if err != nil {
			return Container{}, err
		}
		raw := sv.String()
		if sv.Prerelease() != "" {
			raw = strings.Replace(raw, "-", "~", 1)
		}
		return p.fromForeign(c.ParsedBy, c.String(), 0, raw)
	case FormatPEP440:
		pv, ok := c.Value.(PEP440Value)
		if !ok {
			return Container{}, fmt.Errorf("%w: %s container holds %T", ErrFormatMismatch, c.ParsedBy, c.Value)
		}
		epoch, upstream, err := pep440ToDebian(pv.String())
		if err != nil {
			return Container{}, &UnconvertableError{From: FormatPEP440, To: FormatDebian, Version: pv.String(), Err: err}
		}
		return p.fromForeign(FormatPEP440, pv.String(), epoch, upstream)
	}
	return Container{}, &UnconvertableError{From: c.ParsedBy, To: FormatDebian}
}

func (p *DebianParser) fromForeign(from Format, original string, epoch uint64, raw string) (Container, error) {
	var (
		v   *debversion.Version
		err error
	)
	if epoch > 0 {
		v, err = debversion.New(epoch, raw, "")
	} else {
		v, err = debversion.Parse(raw)
	}
	if err != nil {
		return Container{}, &UnconvertableError{From: from, To: FormatDebian, Version: original, Err: err}
	}
	return Container{Value: DebianValue{V: v}, ParsedBy: FormatDebian}, nil
}

func (p *DebianParser) ConvertTo(c Container, to Format) (Container, error) {
	if to == FormatDebian {
		return c, nil
	}
	return Container{}, &UnconvertableError{From: FormatDebian, To: to}
}

func (p *DebianParser) SupportedActions() []Action {
	return []Action{ActionBumpEpoch, ActionBumpRevision}
}

func (p *DebianParser) ExecuteAction(c Container, action Action) (Container, error) {
	if err := checkFormat(c, FormatDebian); err != nil {
		return Container{}, err
	}
	v := c.Value.(DebianValue).V

	var (
		next *debversion.Version
		err  error
	)
	switch action {
	case ActionBumpEpoch:
		next, err = v.BumpEpoch()
	case ActionBumpRevision:
		next, err = v.BumpRevision()
	default:
		return Container{}, &UnsupportedActionError{Format: FormatDebian, Action: action, Supported: p.SupportedActions()}
	}
	if err != nil {
		return Container{}, &InvalidVersionError{Format: FormatDebian, Version: v.String(), Err: err}
	}
	return Container{Value: DebianValue{V: next}, ParsedBy: FormatDebian}, nil
}

// pep440Normalized matches the rendering of a parsed PEP 440 version. The
// local segment keeps its original '-' and '_' separators.
var pep440Normalized = regexp.MustCompile(
	`^(?:(?P<epoch>[0-9]+)!)?(?P<release>[0-9]+(?:\.[0-9]+)*)(?P<pre>(?:a|b|rc)[0-9]+)?(?:\.post(?P<post>[0-9]+))?(?:\.dev(?P<dev>[0-9]+))?(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`,
)

var localSeparators = strings.NewReplacer("-", ".", "_", ".")

// pep440ToDebian renders a normalized PEP 440 version as a Debian upstream
// version. Pre and dev markers are prefixed with '~' so they sort before the
// release; the epoch is returned separately.
func pep440ToDebian(normalized string) (uint64, string, error) {
	m := pep440Normalized.FindStringSubmatch(normalized)
	if m == nil {
		return 0, "", fmt.Errorf("unexpected normalized form %q", normalized)
	}
	group := func(name string) string {
		return m[pep440Normalized.SubexpIndex(name)]
	}

	var epoch uint64
	if e := group("epoch"); e != "" {
		n, err := strconv.ParseUint(e, 10, 64)
		if err != nil {
			return 0, "", fmt.Errorf("epoch %q: %w", e, err)
		}
		epoch = n
	}

	var b strings.Builder
	b.WriteString(group("release"))
	if pre := group("pre"); pre != "" {
		b.WriteString("~" + pre)
	}
	if post := group("post"); post != "" {
		b.WriteString(".post" + post)
	}
	if dev := group("dev"); dev != "" {
		b.WriteString("~dev" + dev)
	}
	if local := group("local"); local != "" {
		b.WriteString("+" + localSeparators.Replace(local))
	}

	return epoch, b.String(), nil
}
