// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package script provides functions to run PowerShell scripts on a target and get the output.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"text/template"

	"exspect/internal/target"
)

const outputSeparator = "<---------------------->"

type ScriptOutput struct {
	ScriptDefinition
	Stdout   string
	Stderr   string
	Exitcode int
}

// RunScript runs a script on the specified target and returns the output.
func RunScript(ctx context.Context, myTarget target.Target, script ScriptDefinition, timeout int) (ScriptOutput, error) {
	scriptOutputs, err := RunScripts(ctx, myTarget, []ScriptDefinition{script}, timeout)
	if err != nil {
		return ScriptOutput{}, err
	}
	scriptOutput, exists := scriptOutputs[script.Name]
	if !exists {
		return ScriptOutput{}, fmt.Errorf("script output not found for script: %s", script.Name)
	}
	return scriptOutput, nil
}

// RunScripts runs a list of scripts on a target in a single PowerShell session and returns
// the outputs of each script as a map with the script name as the key. A failing script does
// not stop the others; its error text is reported on its stderr with a non-zero exit code.
func RunScripts(ctx context.Context, myTarget target.Target, scripts []ScriptDefinition, timeout int) (map[string]ScriptOutput, error) {
	if len(scripts) == 0 {
		return nil, fmt.Errorf("no scripts to run on target")
	}
	controllerScript, err := formControllerScript(scripts)
	if err != nil {
		return nil, fmt.Errorf("error forming controller script: %w", err)
	}
	stdout, stderr, exitcode, err := target.RunPowerShell(ctx, myTarget, controllerScript, timeout)
	if err != nil {
		slog.Error("failed to execute controller script on target", slog.String("target", myTarget.GetName()), slog.String("stderr", stderr), slog.Int("exitcode", exitcode), slog.String("error", err.Error()))
		return nil, err
	}
	if exitcode != 0 {
		slog.Error("controller script returned non-zero exit code", slog.String("target", myTarget.GetName()), slog.String("stderr", stderr), slog.Int("exitcode", exitcode))
		return nil, fmt.Errorf("controller script returned exit code %d", exitcode)
	}
	scriptOutputs := make(map[string]ScriptOutput)
	for _, scriptOutput := range parseControllerScriptOutput(stdout) {
		for _, script := range scripts {
			if script.Name == scriptOutput.Name {
				scriptOutput.ScriptTemplate = script.ScriptTemplate
				scriptOutputs[scriptOutput.Name] = scriptOutput
				break
			}
		}
	}
	return scriptOutputs, nil
}

// formControllerScript forms a PowerShell controller script that runs each script body in
// its own script block and prints a delimited section per script.
func formControllerScript(scripts []ScriptDefinition) (string, error) {
	type tplScript struct {
		Name string
		Body string
	}
	tplData := struct {
		Separator string
		Scripts   []tplScript
	}{
		Separator: outputSeparator,
	}
	for _, s := range scripts {
		if s.Name == "" {
			return "", fmt.Errorf("script name cannot be empty")
		}
		tplData.Scripts = append(tplData.Scripts, tplScript{
			Name: quotePowerShell(s.Name),
			Body: s.ScriptTemplate,
		})
	}
	const controllerScriptTemplate = `$ErrorActionPreference = 'Stop'
$ProgressPreference = 'SilentlyContinue'
[Console]::OutputEncoding = [System.Text.Encoding]::UTF8

function Invoke-Section([string]$name, [scriptblock]$body) {
    $stdout = ''
    $stderr = ''
    $exitcode = 0
    try {
        $stdout = (& $body | Out-String)
    } catch {
        $stderr = $_.Exception.Message
        $exitcode = 1
    }
    Write-Output '{{.Separator}}'
    Write-Output ('SCRIPT NAME: ' + $name)
    Write-Output 'STDOUT:'
    if ($stdout.Trim()) { Write-Output $stdout.TrimEnd() }
    Write-Output 'STDERR:'
    if ($stderr.Trim()) { Write-Output $stderr.TrimEnd() }
    Write-Output ('EXIT CODE: ' + $exitcode)
}
{{range .Scripts}}
Invoke-Section {{.Name}} {
{{.Body}}
}
{{end}}`
	tmpl, err := template.New("controller").Parse(controllerScriptTemplate)
	if err != nil {
		slog.Error("failed to parse controller script template", slog.String("error", err.Error()))
		return "", err
	}
	var out strings.Builder
	if err = tmpl.Execute(&out, tplData); err != nil {
		slog.Error("failed to execute controller script template", slog.String("error", err.Error()))
		return "", err
	}
	return out.String(), nil
}

// quotePowerShell returns s as a single-quoted PowerShell string literal.
func quotePowerShell(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// parseControllerScriptOutput parses the output of the controller script.
// It returns a list of ScriptOutput objects, one for each script that was run.
func parseControllerScriptOutput(controllerScriptOutput string) (scriptOutputs []ScriptOutput) {
	controllerScriptOutput = strings.ReplaceAll(controllerScriptOutput, "\r\n", "\n")
	for output := range strings.SplitSeq(controllerScriptOutput, outputSeparator+"\n") {
		lines := strings.Split(output, "\n")
		if len(lines) < 4 { // minimum lines for a script output
			continue
		}
		if !strings.HasPrefix(lines[0], "SCRIPT NAME: ") {
			slog.Warn("skipping output because it does not contain script name", slog.String("output", output))
			continue
		}
		scriptName := strings.TrimSpace(strings.TrimPrefix(lines[0], "SCRIPT NAME: "))
		var exitcode string
		var stdoutLines []string
		var stderrLines []string
		stdoutStarted := false
		stderrStarted := false
		for _, line := range lines[1:] {
			if strings.HasPrefix(line, "STDOUT:") {
				stdoutStarted = true
				stderrStarted = false
				continue
			}
			if strings.HasPrefix(line, "STDERR:") {
				stderrStarted = true
				stdoutStarted = false
				continue
			}
			if exitCodeStr, found := strings.CutPrefix(line, "EXIT CODE:"); found {
				exitcode = strings.TrimSpace(exitCodeStr)
				break
			}
			if stdoutStarted {
				stdoutLines = append(stdoutLines, line)
			} else if stderrStarted {
				stderrLines = append(stderrLines, line)
			}
		}
		if len(stdoutLines) > 0 {
			stdoutLines = append(stdoutLines, "")
		}
		if len(stderrLines) > 0 {
			stderrLines = append(stderrLines, "")
		}
		exitCodeInt := -100
		if exitcode == "" {
			slog.Warn("exit code for script not set", slog.String("script", scriptName))
		} else {
			var err error
			exitCodeInt, err = strconv.Atoi(exitcode)
			if err != nil {
				exitCodeInt = -100
				slog.Warn("error converting exit code to integer", slog.String("exitcode", exitcode), slog.String("error", err.Error()), slog.String("script", scriptName))
			}
		}
		scriptOutputs = append(scriptOutputs, ScriptOutput{
			ScriptDefinition: ScriptDefinition{Name: scriptName},
			Stdout:           strings.Join(stdoutLines, "\n"),
			Stderr:           strings.Join(stderrLines, "\n"),
			Exitcode:         exitCodeInt,
		})
	}
	return
}
