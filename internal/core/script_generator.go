package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"app-installer/internal/types"
)

const productName = "App Installer"

const (
	bannerWidth      = 56
	bannerTimeLayout = "2006-01-02 15:04:05 UTC"
)

// Retry policy baked into every generated script: three attempts, waiting
// 2s and then 4s between them.
const (
	installAttempts   = 3
	installRetryDelay = 2
)

// ScriptGenerator emits the installation script of one package manager.
// Generation is pure: the only input besides the selection is the timestamp
// printed in the banner.
type ScriptGenerator interface {
	Descriptor() types.ManagerDescriptor
	Generate(items []types.ScriptItem, generatedAt time.Time) string
}

func NewScriptGenerator(manager types.ManagerID) (ScriptGenerator, error) {
	profile, err := LookupProfile(manager)
	if err != nil {
		return nil, err
	}
	switch profile.Descriptor.Dialect {
	case types.DialectPOSIX:
		return posixGenerator{profile: profile}, nil
	case types.DialectPowerShell:
		return powershellGenerator{profile: profile}, nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("no script dialect for %s", manager))
	}
}

// SplitConfinement separates a confinement marker such as "--classic" from a
// package identifier. Identifiers are split on whitespace and the marker is
// only recognised as a whole token; the remaining tokens form the package.
func SplitConfinement(identifier string, marker string) (string, string) {
	if marker == "" {
		return strings.TrimSpace(identifier), ""
	}
	fields := strings.Fields(identifier)
	kept := make([]string, 0, len(fields))
	flag := ""
	for _, field := range fields {
		if field == marker {
			flag = marker
			continue
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " "), flag
}

func writeBanner(builder *strings.Builder, label string, count int, generatedAt time.Time) {
	lines := []string{
		productName,
		fmt.Sprintf("Package manager: %s", label),
		fmt.Sprintf("Applications:    %d", count),
		fmt.Sprintf("Generated:       %s", generatedAt.UTC().Format(bannerTimeLayout)),
	}
	border := strings.Repeat("═", bannerWidth)
	fmt.Fprintf(builder, "# ╔%s╗\n", border)
	for _, line := range lines {
		fmt.Fprintf(builder, "# ║ %-*s ║\n", bannerWidth-2, line)
	}
	fmt.Fprintf(builder, "# ╚%s╝\n", border)
}

// indent re-indents a multi-line command body for embedding in a function.
func indent(body string, prefix string) string {
	lines := strings.Split(strings.TrimSpace(body), "\n")
	for i, line := range lines {
		lines[i] = prefix + strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}
