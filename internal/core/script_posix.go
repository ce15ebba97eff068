package core

import (
	"fmt"
	"strings"
	"time"

	"app-installer/internal/types"
)

const posixOutputHelpers = `if [ -t 1 ]; then
    RED=$'\033[0;31m'
    GREEN=$'\033[0;32m'
    YELLOW=$'\033[0;33m'
    BLUE=$'\033[0;34m'
    GRAY=$'\033[0;90m'
    BOLD=$'\033[1m'
    RESET=$'\033[0m'
else
    RED="" GREEN="" YELLOW="" BLUE="" GRAY="" BOLD="" RESET=""
fi

info()    { printf '%s==>%s %s\n' "$BLUE" "$RESET" "$1"; }
success() { printf '%s ✓%s %s\n' "$GREEN" "$RESET" "$1"; }
warn()    { printf '%s !%s %s\n' "$YELLOW" "$RESET" "$1" >&2; }
error()   { printf '%s ✗%s %s\n' "$RED" "$RESET" "$1" >&2; }
skip()    { printf '%s ○%s %s\n' "$GRAY" "$RESET" "$1"; }
`

const posixKernelFunctions = `show_progress() {
    local index=$1 name=$2
    local percent=$(( index * 100 / TOTAL ))
    printf '[%d%%] (%d/%d) Installing %s...\n' "$percent" "$index" "$TOTAL" "$name"
    if [ "$AVG_TIME" -gt 0 ]; then
        local remaining=$(( (TOTAL - index + 1) * AVG_TIME ))
        printf '%s      about %ds remaining%s\n' "$GRAY" "$remaining" "$RESET"
    fi
}

# run_timed runs a command, keeps its combined output in LAST_OUTPUT and its
# duration in LAST_ELAPSED, and returns the command's exit status.
run_timed() {
    local started
    started=$(date +%s)
    LAST_OUTPUT=$("$@" 2>&1)
    local status=$?
    LAST_ELAPSED=$(( $(date +%s) - started ))
    return $status
}

with_retry() {
    local attempt=1 delay=$RETRY_DELAY started
    started=$(date +%s)
    while true; do
        if run_timed "$@"; then
            LAST_ELAPSED=$(( $(date +%s) - started ))
            return 0
        fi
        if is_permanent_failure "$LAST_OUTPUT" || [ "$attempt" -ge "$MAX_ATTEMPTS" ]; then
            LAST_ELAPSED=$(( $(date +%s) - started ))
            return 1
        fi
        warn "Attempt $attempt/$MAX_ATTEMPTS failed, retrying in ${delay}s..."
        sleep "$delay"
        attempt=$(( attempt + 1 ))
        delay=$(( delay * 2 ))
    done
}

update_average() {
    TIMED_COUNT=$(( TIMED_COUNT + 1 ))
    AVG_TIME=$(( (AVG_TIME * (TIMED_COUNT - 1) + $1) / TIMED_COUNT ))
}

print_summary() {
    local elapsed=$(( $(date +%s) - START_TIME ))
    echo
    printf '%sSummary%s\n' "$BOLD" "$RESET"
    printf '  %sSucceeded:%s %d\n' "$GREEN" "$RESET" "${#SUCCEEDED[@]}"
    printf '  %sSkipped:%s   %d\n' "$GRAY" "$RESET" "${#SKIPPED[@]}"
    printf '  %sFailed:%s    %d\n' "$RED" "$RESET" "${#FAILED[@]}"
    printf '  Elapsed:   %dm %ds\n' $(( elapsed / 60 )) $(( elapsed % 60 ))
    if [ "${#FAILED[@]}" -gt 0 ]; then
        echo
        error "Failed to install:"
        local name
        for name in "${FAILED[@]}"; do
            printf '    - %s\n' "$name"
        done
    fi
}
`

const posixInstallFunctions = `install_package() {
    local name=$1 pkg=$2 flag=$3
    CURRENT=$(( CURRENT + 1 ))
    if check_installed "$pkg"; then
        skip "$name is already installed"
        SKIPPED+=("$name")
        return 0
    fi
    show_progress "$CURRENT" "$name"
    if with_retry install_cmd "$pkg" "$flag"; then
        success "$name installed in ${LAST_ELAPSED}s"
        SUCCEEDED+=("$name")
        update_average "$LAST_ELAPSED"
    else
        error "Failed to install $name"
        printf '%s\n' "$LAST_OUTPUT" | tail -n 5 >&2
        FAILED+=("$name")
    fi
}
`

// posixParallelFunction installs every argument triple (name, package, flag)
// concurrently. Outcomes are read per child from its exit status; the batch
// shares a single elapsed time, which feeds the average only when at least
// one child succeeded.
const posixParallelFunction = `install_parallel() {
    local names=() pids=() started i batch_succeeded=0
    started=$(date +%s)
    while [ "$#" -ge 3 ]; do
        local name=$1 pkg=$2 flag=$3
        shift 3
        CURRENT=$(( CURRENT + 1 ))
        if check_installed "$pkg"; then
            skip "$name is already installed"
            SKIPPED+=("$name")
            continue
        fi
        show_progress "$CURRENT" "$name"
        with_retry install_cmd "$pkg" "$flag" &
        pids+=("$!")
        names+=("$name")
    done
    if [ "${#pids[@]}" -eq 0 ]; then
        return 0
    fi
    info "Waiting for ${#pids[@]} parallel installs..."
    for i in "${!pids[@]}"; do
        if wait "${pids[$i]}"; then
            success "${names[$i]} installed"
            SUCCEEDED+=("${names[$i]}")
            batch_succeeded=$(( batch_succeeded + 1 ))
        else
            error "Failed to install ${names[$i]}"
            FAILED+=("${names[$i]}")
        fi
    done
    local elapsed=$(( $(date +%s) - started ))
    if [ "$batch_succeeded" -gt 0 ]; then
        update_average "$elapsed"
    fi
    info "Parallel batch finished in ${elapsed}s"
}
`

type posixGenerator struct {
	profile ManagerProfile
}

var _ ScriptGenerator = posixGenerator{}

func (g posixGenerator) Descriptor() types.ManagerDescriptor {
	return g.profile.Descriptor
}

func (g posixGenerator) Generate(items []types.ScriptItem, generatedAt time.Time) string {
	label := g.profile.Descriptor.Label
	builder := strings.Builder{}
	builder.WriteString("#!/usr/bin/env bash\n")
	writeBanner(&builder, label, len(items), generatedAt)
	builder.WriteString("\n")

	if len(items) == 0 {
		fmt.Fprintf(&builder, "echo \"Warning: no applications selected for %s, nothing to install.\" >&2\n", EscapeShell(label))
		builder.WriteString("exit 0\n")
		return builder.String()
	}

	builder.WriteString(posixOutputHelpers)
	builder.WriteString("\n")
	g.writeCounters(&builder, len(items))
	builder.WriteString("\n")
	builder.WriteString(posixKernelFunctions)
	builder.WriteString("\n")
	g.writeManagerFunctions(&builder)
	builder.WriteString("\n")
	builder.WriteString(posixInstallFunctions)
	parallel := g.parallel(len(items))
	if parallel {
		builder.WriteString("\n")
		builder.WriteString(posixParallelFunction)
	}
	builder.WriteString("\n")
	g.writePreflight(&builder)
	g.writeBootstrap(&builder)

	fmt.Fprintf(&builder, "info \"Installing %d application(s) with %s\"\n", len(items), EscapeShell(label))
	if parallel {
		g.writeParallelInstalls(&builder, items)
	} else {
		for _, item := range items {
			fmt.Fprintf(&builder, "install_package %s\n", g.installArgs(item))
		}
	}
	builder.WriteString("\nprint_summary\nexit 0\n")
	return builder.String()
}

func (g posixGenerator) parallel(count int) bool {
	return g.profile.ParallelThreshold > 0 && count >= g.profile.ParallelThreshold
}

func (g posixGenerator) writeCounters(builder *strings.Builder, total int) {
	fmt.Fprintf(builder, "TOTAL=%d\n", total)
	builder.WriteString("CURRENT=0\n")
	builder.WriteString("SUCCEEDED=()\nSKIPPED=()\nFAILED=()\n")
	builder.WriteString("AVG_TIME=0\nTIMED_COUNT=0\n")
	builder.WriteString("START_TIME=$(date +%s)\n")
	fmt.Fprintf(builder, "MAX_ATTEMPTS=%d\n", installAttempts)
	fmt.Fprintf(builder, "RETRY_DELAY=%d\n", installRetryDelay)
	builder.WriteString("LAST_OUTPUT=\"\"\nLAST_ELAPSED=0\n")
}

func (g posixGenerator) writeManagerFunctions(builder *strings.Builder) {
	builder.WriteString("check_installed() {\n    local pkg=$1\n")
	builder.WriteString(indent(g.profile.CheckCommand, "    "))
	builder.WriteString("\n}\n\n")

	builder.WriteString("install_cmd() {\n    local pkg=$1 flag=$2\n")
	builder.WriteString(indent(g.profile.InstallCommand, "    "))
	builder.WriteString("\n}\n\n")

	builder.WriteString("is_permanent_failure() {\n")
	if len(g.profile.PermanentFailures) > 0 {
		patterns := make([]string, 0, len(g.profile.PermanentFailures))
		for _, pattern := range g.profile.PermanentFailures {
			patterns = append(patterns, `*"`+EscapeShell(pattern)+`"*`)
		}
		builder.WriteString("    case \"$1\" in\n")
		fmt.Fprintf(builder, "        %s) return 0 ;;\n", strings.Join(patterns, "|"))
		builder.WriteString("    esac\n")
	}
	builder.WriteString("    return 1\n}\n")
}

func (g posixGenerator) writePreflight(builder *strings.Builder) {
	executable := g.profile.Executable
	fmt.Fprintf(builder, "if ! command -v %s >/dev/null 2>&1; then\n", executable)
	fmt.Fprintf(builder, "    error \"%s is not installed. Install it from %s\"\n", executable, g.profile.InstallHint)
	builder.WriteString("    exit 1\nfi\n\n")

	label := EscapeShell(g.profile.Descriptor.Label)
	switch g.profile.Privilege {
	case types.PrivilegeRefuseRoot:
		builder.WriteString("if [ \"$(id -u)\" -eq 0 ]; then\n")
		if g.profile.UseSudo {
			builder.WriteString("    error \"Do not run this script as root, it asks for sudo when needed.\"\n")
		} else {
			fmt.Fprintf(builder, "    error \"%s must not be run as root.\"\n", label)
		}
		builder.WriteString("    exit 1\nfi\n\n")
	case types.PrivilegeRequireRoot:
		builder.WriteString("if [ \"$(id -u)\" -ne 0 ]; then\n")
		fmt.Fprintf(builder, "    error \"%s installs must be run as root.\"\n", label)
		builder.WriteString("    exit 1\nfi\n\n")
	}

	if g.profile.UseSudo {
		builder.WriteString("info \"Requesting administrator privileges...\"\n")
		builder.WriteString("if ! sudo -v; then\n")
		builder.WriteString("    error \"Could not obtain sudo privileges.\"\n")
		builder.WriteString("    exit 1\nfi\n")
		builder.WriteString("while true; do sudo -n true; sleep 50; kill -0 \"$$\" || exit; done 2>/dev/null &\n\n")
	}
}

func (g posixGenerator) writeBootstrap(builder *strings.Builder) {
	for _, step := range g.profile.Bootstrap {
		fmt.Fprintf(builder, "info \"%s\"\n", EscapeShell(step.Description))
		fmt.Fprintf(builder, "if ! %s >/dev/null 2>&1; then\n", step.Command)
		fmt.Fprintf(builder, "    warn \"%s\"\n", EscapeShell(step.Warning))
		builder.WriteString("fi\n\n")
	}
}

func (g posixGenerator) writeParallelInstalls(builder *strings.Builder, items []types.ScriptItem) {
	builder.WriteString("install_parallel")
	for _, item := range items {
		fmt.Fprintf(builder, " \\\n    %s", g.installArgs(item))
	}
	builder.WriteString("\n")
}

func (g posixGenerator) installArgs(item types.ScriptItem) string {
	pkg, flag := SplitConfinement(item.Package, g.profile.ConfinementMarker)
	return fmt.Sprintf(`"%s" "%s" "%s"`, EscapeShell(item.Name), EscapeShell(pkg), EscapeShell(flag))
}
