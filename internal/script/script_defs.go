// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package script

// script_defs.go defines the PowerShell scripts that are used to collect information from managed hosts

import (
	"fmt"
	"strings"
)

type ScriptDefinition struct {
	Name           string // just a name, must be unique within a run
	ScriptTemplate string // the PowerShell script body that will be run
}

// script names, these must be unique
const (
	ProcessorsScriptName            = "processors"
	MemoryModulesScriptName         = "memory modules"
	PagefileManagedScriptName       = "pagefile managed"
	PagefileSettingsScriptName      = "pagefile settings"
	CounterTableReferenceScriptName = "counter table reference"
	CounterTableLocalizedScriptName = "counter table localized"
	CounterSampleScriptName         = "counter sample"
	DirectoryServersScriptName      = "directory servers"
	perflibKey                      = `HKLM:\SOFTWARE\Microsoft\Windows NT\CurrentVersion\Perflib`
	referenceLanguageID             = "009"
	currentLanguageID               = "CurrentLanguage"
	directorySnapIn                 = "Microsoft.Exchange.Management.PowerShell.SnapIn"
)

var scripts = []ScriptDefinition{
	{
		Name: ProcessorsScriptName,
		// cores|enabled cores|logical processors, one line per socket
		ScriptTemplate: `Get-CimInstance -ClassName Win32_Processor | ForEach-Object {
    '{0}|{1}|{2}' -f $_.NumberOfCores, $_.NumberOfEnabledCore, $_.NumberOfLogicalProcessors
}`,
	},
	{
		Name: MemoryModulesScriptName,
		// capacity in bytes, one line per module
		ScriptTemplate: `Get-CimInstance -ClassName Win32_PhysicalMemory | ForEach-Object { [string]$_.Capacity }`,
	},
	{
		Name:           PagefileManagedScriptName,
		ScriptTemplate: `[string](Get-CimInstance -ClassName Win32_ComputerSystem).AutomaticManagedPagefile`,
	},
	{
		Name: PagefileSettingsScriptName,
		// name|initial MB|maximum MB, one line per pagefile
		ScriptTemplate: `Get-CimInstance -ClassName Win32_PageFileSetting | ForEach-Object {
    '{0}|{1}|{2}' -f $_.Name, $_.InitialSize, $_.MaximumSize
}`,
	},
	{
		Name:           CounterTableReferenceScriptName,
		ScriptTemplate: counterTableScript(referenceLanguageID),
	},
	{
		Name:           CounterTableLocalizedScriptName,
		ScriptTemplate: counterTableScript(currentLanguageID),
	},
	{
		Name: DirectoryServersScriptName,
		// name|fqdn|version, one line per server
		ScriptTemplate: fmt.Sprintf(`if (-not (Get-Command Get-ExchangeServer -ErrorAction SilentlyContinue)) {
    Add-PSSnapin %s
}
Get-ExchangeServer | ForEach-Object {
    '{0}|{1}|{2}' -f $_.Name, $_.Fqdn, $_.AdminDisplayVersion
}`, directorySnapIn),
	},
}

// counterTableScript prints the Perflib Counter multi-string for a language, one entry per line.
func counterTableScript(language string) string {
	return fmt.Sprintf(`(Get-ItemProperty -Path '%s\%s' -Name Counter).Counter`, perflibKey, language)
}

// GetScriptByName returns the script definition with the given name. It will panic if the script is not found.
func GetScriptByName(name string) ScriptDefinition {
	for _, s := range scripts {
		if s.Name == name {
			return s
		}
	}
	panic(fmt.Sprintf("script not found: %s", name))
}

// GetScriptsByNames returns the script definitions with the given names.
func GetScriptsByNames(names []string) []ScriptDefinition {
	var defs []ScriptDefinition
	for _, name := range names {
		defs = append(defs, GetScriptByName(name))
	}
	return defs
}

// CounterSampleScript returns a script that reads the given counter paths once and prints
// index|value lines, values formatted with the invariant culture.
func CounterSampleScript(paths []string) ScriptDefinition {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = quotePowerShell(p)
	}
	return ScriptDefinition{
		Name: CounterSampleScriptName,
		ScriptTemplate: fmt.Sprintf(`$paths = @(%s)
$samples = (Get-Counter -Counter $paths -MaxSamples 1).CounterSamples
for ($i = 0; $i -lt $samples.Count; $i++) {
    '{0}|{1}' -f $i, $samples[$i].CookedValue.ToString([cultureinfo]::InvariantCulture)
}`, strings.Join(quoted, ", ")),
	}
}
