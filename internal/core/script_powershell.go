package core

import (
	"fmt"
	"strings"
	"time"

	"app-installer/internal/types"
)

const powershellOutputHelpers = `function Write-Info([string]$Message) { Write-Host "==> $Message" -ForegroundColor Cyan }
function Write-Ok([string]$Message) { Write-Host " [OK] $Message" -ForegroundColor Green }
function Write-Warn([string]$Message) { Write-Host " [!] $Message" -ForegroundColor Yellow }
function Write-Fail([string]$Message) { Write-Host " [X] $Message" -ForegroundColor Red }
function Write-Skip([string]$Message) { Write-Host " [-] $Message" -ForegroundColor DarkGray }
`

const powershellKernelFunctions = `function Show-Progress([int]$Index, [string]$Name) {
    $percent = [math]::Floor($Index * 100 / $script:Total)
    Write-Host ("[{0}%] ({1}/{2}) Installing {3}..." -f $percent, $Index, $script:Total, $Name)
    if ($script:AvgTime -gt 0) {
        $remaining = ($script:Total - $Index + 1) * $script:AvgTime
        Write-Host ("      about {0}s remaining" -f $remaining) -ForegroundColor DarkGray
    }
}

# Invoke-Timed runs a script block, keeps its combined output in LastOutput
# and its duration in LastElapsed, and returns whether it exited cleanly.
function Invoke-Timed([scriptblock]$Command, [object[]]$Arguments) {
    $started = Get-Date
    $global:LASTEXITCODE = 0
    try {
        $script:LastOutput = & $Command @Arguments 2>&1 | Out-String
        $ok = ($LASTEXITCODE -eq 0)
    } catch {
        $script:LastOutput = $_.Exception.Message
        $ok = $false
    }
    $script:LastElapsed = [int]((Get-Date) - $started).TotalSeconds
    return $ok
}

function Invoke-WithRetry([scriptblock]$Command, [object[]]$Arguments) {
    $started = Get-Date
    $delay = $script:RetryDelay
    for ($attempt = 1; $attempt -le $script:MaxAttempts; $attempt++) {
        if (Invoke-Timed $Command $Arguments) {
            $script:LastElapsed = [int]((Get-Date) - $started).TotalSeconds
            return $true
        }
        if ((Test-PermanentFailure $script:LastOutput) -or $attempt -ge $script:MaxAttempts) {
            break
        }
        Write-Warn "Attempt $attempt/$($script:MaxAttempts) failed, retrying in $($delay)s..."
        Start-Sleep -Seconds $delay
        $delay = $delay * 2
    }
    $script:LastElapsed = [int]((Get-Date) - $started).TotalSeconds
    return $false
}

function Update-Average([int]$Elapsed) {
    $script:TimedCount++
    $script:AvgTime = [math]::Floor((($script:AvgTime * ($script:TimedCount - 1)) + $Elapsed) / $script:TimedCount)
}

function Write-Summary {
    $elapsed = [int]((Get-Date) - $script:StartTime).TotalSeconds
    Write-Host ""
    Write-Host "Summary" -ForegroundColor White
    Write-Host ("  Succeeded: {0}" -f $script:Succeeded.Count) -ForegroundColor Green
    Write-Host ("  Skipped:   {0}" -f $script:Skipped.Count) -ForegroundColor DarkGray
    Write-Host ("  Failed:    {0}" -f $script:Failed.Count) -ForegroundColor Red
    Write-Host ("  Elapsed:   {0}m {1}s" -f [math]::Floor($elapsed / 60), ($elapsed % 60))
    if ($script:Failed.Count -gt 0) {
        Write-Host ""
        Write-Fail "Failed to install:"
        foreach ($name in $script:Failed) {
            Write-Host "    - $name"
        }
    }
}
`

const powershellInstallFunction = `function Install-App([string]$Name, [string]$Package) {
    $script:Current++
    if (Test-Installed $Package) {
        Write-Skip "$Name is already installed"
        $script:Skipped.Add($Name)
        return
    }
    Show-Progress $script:Current $Name
    if (Invoke-WithRetry ${function:Invoke-Install} @($Package)) {
        Write-Ok "$Name installed in $($script:LastElapsed)s"
        $script:Succeeded.Add($Name)
        Update-Average $script:LastElapsed
    } else {
        Write-Fail "Failed to install $Name"
        Write-Host $script:LastOutput -ForegroundColor DarkGray
        $script:Failed.Add($Name)
    }
}
`

type powershellGenerator struct {
	profile ManagerProfile
}

var _ ScriptGenerator = powershellGenerator{}

func (g powershellGenerator) Descriptor() types.ManagerDescriptor {
	return g.profile.Descriptor
}

func (g powershellGenerator) Generate(items []types.ScriptItem, generatedAt time.Time) string {
	label := g.profile.Descriptor.Label
	builder := strings.Builder{}
	builder.WriteString("#Requires -Version 5.1\n")
	if len(items) > 0 && g.profile.Privilege == types.PrivilegeRequireRoot {
		builder.WriteString("#Requires -RunAsAdministrator\n")
	}
	writeBanner(&builder, label, len(items), generatedAt)
	builder.WriteString("\n")

	if len(items) == 0 {
		fmt.Fprintf(&builder, "Write-Warning \"No applications selected for %s, nothing to install.\"\n", EscapePowerShell(label))
		builder.WriteString("return\n")
		return builder.String()
	}

	builder.WriteString("$ErrorActionPreference = 'Continue'\n\n")
	builder.WriteString(powershellOutputHelpers)
	builder.WriteString("\n")
	g.writeCounters(&builder, len(items))
	builder.WriteString("\n")
	builder.WriteString(powershellKernelFunctions)
	builder.WriteString("\n")
	g.writeManagerFunctions(&builder)
	builder.WriteString("\n")
	builder.WriteString(powershellInstallFunction)
	builder.WriteString("\n")
	g.writePreflight(&builder)
	g.writeBootstrap(&builder)

	fmt.Fprintf(&builder, "Write-Info \"Installing %d application(s) with %s\"\n", len(items), EscapePowerShell(label))
	for _, item := range items {
		fmt.Fprintf(&builder, "Install-App \"%s\" \"%s\"\n", EscapePowerShell(item.Name), EscapePowerShell(strings.TrimSpace(item.Package)))
	}
	builder.WriteString("\nWrite-Summary\nexit 0\n")
	return builder.String()
}

func (g powershellGenerator) writeCounters(builder *strings.Builder, total int) {
	fmt.Fprintf(builder, "$script:Total = %d\n", total)
	builder.WriteString("$script:Current = 0\n")
	builder.WriteString("$script:Succeeded = New-Object System.Collections.Generic.List[string]\n")
	builder.WriteString("$script:Skipped = New-Object System.Collections.Generic.List[string]\n")
	builder.WriteString("$script:Failed = New-Object System.Collections.Generic.List[string]\n")
	builder.WriteString("$script:AvgTime = 0\n$script:TimedCount = 0\n")
	builder.WriteString("$script:StartTime = Get-Date\n")
	fmt.Fprintf(builder, "$script:MaxAttempts = %d\n", installAttempts)
	fmt.Fprintf(builder, "$script:RetryDelay = %d\n", installRetryDelay)
	builder.WriteString("$script:LastOutput = ''\n$script:LastElapsed = 0\n")
}

func (g powershellGenerator) writeManagerFunctions(builder *strings.Builder) {
	builder.WriteString("function Test-Installed([string]$Package) {\n")
	builder.WriteString(indent(g.profile.CheckCommand, "    "))
	builder.WriteString("\n}\n\n")

	builder.WriteString("function Invoke-Install([string]$Package) {\n")
	builder.WriteString(indent(g.profile.InstallCommand, "    "))
	builder.WriteString("\n}\n\n")

	patterns := make([]string, 0, len(g.profile.PermanentFailures))
	for _, pattern := range g.profile.PermanentFailures {
		patterns = append(patterns, `"`+EscapePowerShell(pattern)+`"`)
	}
	builder.WriteString("function Test-PermanentFailure([string]$Output) {\n")
	if len(patterns) > 0 {
		fmt.Fprintf(builder, "    foreach ($pattern in @(%s)) {\n", strings.Join(patterns, ", "))
		builder.WriteString("        if ($Output.Contains($pattern)) { return $true }\n")
		builder.WriteString("    }\n")
	}
	builder.WriteString("    return $false\n}\n")
}

func (g powershellGenerator) writePreflight(builder *strings.Builder) {
	executable := g.profile.Executable
	fmt.Fprintf(builder, "if (-not (Get-Command %s -ErrorAction SilentlyContinue)) {\n", executable)
	fmt.Fprintf(builder, "    Write-Fail \"%s is not installed. Install it from %s\"\n", executable, g.profile.InstallHint)
	builder.WriteString("    exit 1\n}\n\n")

	if g.profile.Privilege == types.PrivilegeAny {
		return
	}
	label := EscapePowerShell(g.profile.Descriptor.Label)
	builder.WriteString("$principal = New-Object Security.Principal.WindowsPrincipal([Security.Principal.WindowsIdentity]::GetCurrent())\n")
	builder.WriteString("$isAdmin = $principal.IsInRole([Security.Principal.WindowsBuiltInRole]::Administrator)\n")
	switch g.profile.Privilege {
	case types.PrivilegeRequireRoot:
		builder.WriteString("if (-not $isAdmin) {\n")
		fmt.Fprintf(builder, "    Write-Fail \"%s installs must be run from an elevated PowerShell session.\"\n", label)
	case types.PrivilegeRefuseRoot:
		builder.WriteString("if ($isAdmin) {\n")
		fmt.Fprintf(builder, "    Write-Fail \"%s must not be run from an elevated PowerShell session.\"\n", label)
	}
	builder.WriteString("    exit 1\n}\n\n")
}

func (g powershellGenerator) writeBootstrap(builder *strings.Builder) {
	for _, step := range g.profile.Bootstrap {
		fmt.Fprintf(builder, "Write-Info \"%s\"\n", EscapePowerShell(step.Description))
		builder.WriteString("$global:LASTEXITCODE = 0\n")
		fmt.Fprintf(builder, "try { %s *> $null } catch { $global:LASTEXITCODE = 1 }\n", step.Command)
		fmt.Fprintf(builder, "if ($LASTEXITCODE -ne 0) { Write-Warn \"%s\" }\n\n", EscapePowerShell(step.Warning))
	}
}
