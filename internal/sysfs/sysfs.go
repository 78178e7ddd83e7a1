/*
Package sysfs reads and writes the CPU frequency scaling control attributes
that the kernel exposes under /sys/devices/system/cpu.
*/
package sysfs

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	goerrors "errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"pstatefreq/internal/util"

	"github.com/pkg/errors"
)

// Attribute names a control attribute of the frequency scaling driver.
type Attribute string

const (
	Interface          Attribute = "interface" // read-only, "intel_pstate" or "cpufreq"
	Driver             Attribute = "scaling_driver"
	Governor           Attribute = "scaling_governor"
	AvailableGovernors Attribute = "scaling_available_governors"
	InfoMinFreq        Attribute = "cpuinfo_min_freq"
	InfoMaxFreq        Attribute = "cpuinfo_max_freq"
	ScalingMinFreq     Attribute = "scaling_min_freq"
	ScalingMaxFreq     Attribute = "scaling_max_freq"
	MinPercent         Attribute = "min_perf_pct"
	MaxPercent         Attribute = "max_perf_pct"
	Turbo              Attribute = "turbo"
	CoreFrequencies    Attribute = "scaling_cur_freq" // read-only, space separated kHz, one per CPU
	CPUCount           Attribute = "cpu_count"        // read-only
)

// Control interface names reported by the Interface attribute.
const (
	InterfacePstate  = "intel_pstate"
	InterfaceCpufreq = "cpufreq"
)

var (
	// ErrReadFailed matches any failed attribute read.
	ErrReadFailed = errors.New("attribute read failed")
	// ErrWriteFailed matches any failed attribute write.
	ErrWriteFailed = errors.New("attribute write failed")
	// ErrUnsupported is wrapped when the attribute does not exist on this system
	// or cannot be written.
	ErrUnsupported = errors.New("attribute not supported")
)

// Reader reads attributes.
type Reader interface {
	ReadAttribute(name Attribute) (string, error)
}

// Writer writes attributes.
type Writer interface {
	WriteAttribute(name Attribute, value string) error
}

// Store is the attribute store consumed by the policy engine.
type Store interface {
	Reader
	Writer
}

// AttributeError records a failed read or write of an attribute.
type AttributeError struct {
	Op   string // "read" or "write"
	Name Attribute
	Path string
	Err  error
}

func (e *AttributeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Name, e.Path, e.Err)
}

func (e *AttributeError) Unwrap() error {
	return e.Err
}

// Is reports ErrReadFailed or ErrWriteFailed according to the operation.
func (e *AttributeError) Is(target error) bool {
	switch target {
	case ErrReadFailed:
		return e.Op == "read"
	case ErrWriteFailed:
		return e.Op == "write"
	}
	return false
}

const (
	cpuDevicesDir     = "sys/devices/system/cpu"
	powerSupplyDir    = "sys/class/power_supply"
	pstateDir         = "intel_pstate"
	noTurboFile       = "no_turbo"
	boostFile         = "cpufreq/boost"
	cpufreqSubdir     = "cpufreq"
	mainsSupplyType   = "Mains"
	batterySupplyType = "Battery"
)

// FS is a Store backed by a sysfs tree. The tree is normally mounted at "/",
// any other root is treated as a copy of it.
type FS struct {
	root    string
	cpus    []string
	pstate  int // zero indicates unknown, 1 indicates present, -1 indicates absent
	infoMax int // cached cpuinfo_max_freq in kHz
}

// New creates an FS rooted at root. An empty root means "/".
func New(root string) *FS {
	if root == "" {
		root = "/"
	}
	return &FS{root: root}
}

// Root returns the directory the sysfs tree is read from.
func (f *FS) Root() string {
	return f.root
}

func (f *FS) cpuPath(elem ...string) string {
	return filepath.Join(append([]string{f.root, cpuDevicesDir}, elem...)...)
}

// HasPstate reports whether the intel_pstate control files are present.
func (f *FS) HasPstate() bool {
	if f.pstate == 0 {
		f.pstate = -1
		if exists, err := util.FileExists(f.cpuPath(pstateDir, string(MaxPercent))); err == nil && exists {
			f.pstate = 1
		}
	}
	return f.pstate == 1
}

// CPUs returns the cpuN directories that carry a cpufreq subdirectory, ordered by N.
func (f *FS) CPUs() ([]string, error) {
	if f.cpus != nil {
		return f.cpus, nil
	}
	entries, err := os.ReadDir(f.cpuPath())
	if err != nil {
		return nil, err
	}
	type cpuDir struct {
		id   int
		path string
	}
	var dirs []cpuDir
	for _, entry := range entries {
		suffix, ok := strings.CutPrefix(entry.Name(), "cpu")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		path := f.cpuPath(entry.Name())
		if exists, err := util.DirectoryExists(filepath.Join(path, cpufreqSubdir)); err != nil || !exists {
			continue
		}
		dirs = append(dirs, cpuDir{id: id, path: path})
	}
	slices.SortFunc(dirs, func(a, b cpuDir) int { return a.id - b.id })
	f.cpus = make([]string, 0, len(dirs))
	for _, d := range dirs {
		f.cpus = append(f.cpus, d.path)
	}
	return f.cpus, nil
}

// ReadAttribute returns the trimmed value of the named attribute.
func (f *FS) ReadAttribute(name Attribute) (string, error) {
	switch name {
	case Interface:
		if f.HasPstate() {
			return InterfacePstate, nil
		}
		return InterfaceCpufreq, nil
	case CPUCount:
		cpus, err := f.CPUs()
		if err != nil {
			return "", &AttributeError{Op: "read", Name: name, Path: f.cpuPath(), Err: err}
		}
		return strconv.Itoa(len(cpus)), nil
	case Driver, Governor, AvailableGovernors, InfoMinFreq, InfoMaxFreq, ScalingMinFreq, ScalingMaxFreq:
		return f.readFirstCPU(name)
	case MinPercent, MaxPercent:
		if f.HasPstate() {
			return readFile(name, f.cpuPath(pstateDir, string(name)))
		}
		return f.readPercentFromFreq(name)
	case Turbo:
		path, err := f.turboPath()
		if err != nil {
			return "", &AttributeError{Op: "read", Name: name, Path: path, Err: err}
		}
		return readFile(name, path)
	case CoreFrequencies:
		return f.readCoreFrequencies()
	}
	return "", &AttributeError{Op: "read", Name: name, Err: ErrUnsupported}
}

// WriteAttribute writes value to the named attribute. Governor and, without
// intel_pstate, the percentages are written to every CPU.
func (f *FS) WriteAttribute(name Attribute, value string) error {
	slog.Debug("writing attribute", slog.String("attribute", string(name)), slog.String("value", value))
	switch name {
	case Governor:
		return f.writeAllCPUs(name, string(name), value)
	case MinPercent, MaxPercent:
		if f.HasPstate() {
			return writeFile(name, f.cpuPath(pstateDir, string(name)), value)
		}
		return f.writePercentAsFreq(name, value)
	case Turbo:
		path, err := f.turboPath()
		if err != nil {
			return &AttributeError{Op: "write", Name: name, Path: path, Err: err}
		}
		return writeFile(name, path, value)
	}
	return &AttributeError{Op: "write", Name: name, Err: ErrUnsupported}
}

// OnACPower reports whether a mains power supply is online. Systems that
// expose neither a mains supply nor a battery are treated as being on AC power.
func (f *FS) OnACPower() (bool, error) {
	supplies, err := filepath.Glob(filepath.Join(f.root, powerSupplyDir, "*"))
	if err != nil {
		return false, err
	}
	foundSupply := false
	for _, supply := range supplies {
		supplyType, err := os.ReadFile(filepath.Join(supply, "type"))
		if err != nil {
			continue
		}
		switch strings.TrimSpace(string(supplyType)) {
		case batterySupplyType:
			foundSupply = true
			continue
		case mainsSupplyType:
			foundSupply = true
		default:
			continue
		}
		online, err := os.ReadFile(filepath.Join(supply, "online"))
		if err != nil {
			return false, &AttributeError{Op: "read", Name: "online", Path: filepath.Join(supply, "online"), Err: err}
		}
		if strings.TrimSpace(string(online)) == "1" {
			return true, nil
		}
	}
	return !foundSupply, nil
}

func (f *FS) turboPath() (string, error) {
	if f.HasPstate() {
		return f.cpuPath(pstateDir, noTurboFile), nil
	}
	path := f.cpuPath(boostFile)
	if exists, err := util.FileExists(path); err != nil || !exists {
		return path, ErrUnsupported
	}
	return path, nil
}

func (f *FS) readFirstCPU(name Attribute) (string, error) {
	cpus, err := f.CPUs()
	if err != nil {
		return "", &AttributeError{Op: "read", Name: name, Path: f.cpuPath(), Err: err}
	}
	if len(cpus) == 0 {
		return "", &AttributeError{Op: "read", Name: name, Path: f.cpuPath(), Err: ErrUnsupported}
	}
	return readFile(name, filepath.Join(cpus[0], cpufreqSubdir, string(name)))
}

func (f *FS) readInt(name Attribute) (int, error) {
	value, err := f.readFirstCPU(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &AttributeError{Op: "read", Name: name, Err: errors.Wrapf(err, "parse %q", value)}
	}
	return n, nil
}

func (f *FS) cpuInfoMax() (int, error) {
	if f.infoMax == 0 {
		infoMax, err := f.readInt(InfoMaxFreq)
		if err != nil {
			return 0, err
		}
		if infoMax <= 0 {
			return 0, &AttributeError{Op: "read", Name: InfoMaxFreq, Err: errors.Errorf("invalid value %d", infoMax)}
		}
		f.infoMax = infoMax
	}
	return f.infoMax, nil
}

func scalingFileFor(name Attribute) Attribute {
	if name == MinPercent {
		return ScalingMinFreq
	}
	return ScalingMaxFreq
}

func (f *FS) readPercentFromFreq(name Attribute) (string, error) {
	infoMax, err := f.cpuInfoMax()
	if err != nil {
		return "", err
	}
	freq, err := f.readInt(scalingFileFor(name))
	if err != nil {
		return "", err
	}
	return strconv.Itoa(int(math.Round(float64(freq) * 100 / float64(infoMax)))), nil
}

func (f *FS) writePercentAsFreq(name Attribute, value string) error {
	percent, err := strconv.Atoi(value)
	if err != nil {
		return &AttributeError{Op: "write", Name: name, Err: errors.Wrapf(err, "parse %q", value)}
	}
	infoMax, err := f.cpuInfoMax()
	if err != nil {
		return &AttributeError{Op: "write", Name: name, Err: err}
	}
	freq := infoMax * percent / 100
	return f.writeAllCPUs(name, string(scalingFileFor(name)), strconv.Itoa(freq))
}

func (f *FS) writeAllCPUs(name Attribute, file string, value string) error {
	cpus, err := f.CPUs()
	if err != nil {
		return &AttributeError{Op: "write", Name: name, Path: f.cpuPath(), Err: err}
	}
	if len(cpus) == 0 {
		return &AttributeError{Op: "write", Name: name, Path: f.cpuPath(), Err: ErrUnsupported}
	}
	var errs []error
	for _, cpu := range cpus {
		if err := writeFile(name, filepath.Join(cpu, cpufreqSubdir, file), value); err != nil {
			errs = append(errs, err)
		}
	}
	return goerrors.Join(errs...)
}

func (f *FS) readCoreFrequencies() (string, error) {
	cpus, err := f.CPUs()
	if err != nil {
		return "", &AttributeError{Op: "read", Name: CoreFrequencies, Path: f.cpuPath(), Err: err}
	}
	freqs := make([]string, 0, len(cpus))
	for _, cpu := range cpus {
		freq, err := readFile(CoreFrequencies, filepath.Join(cpu, cpufreqSubdir, string(CoreFrequencies)))
		if err != nil {
			return "", err
		}
		freqs = append(freqs, freq)
	}
	return strings.Join(freqs, " "), nil
}

func readFile(name Attribute, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", &AttributeError{Op: "read", Name: name, Path: path, Err: err}
	}
	return strings.TrimSpace(string(content)), nil
}

func writeFile(name Attribute, path string, value string) error {
	// sysfs attributes always exist, never create one
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return &AttributeError{Op: "write", Name: name, Path: path, Err: err}
	}
	_, err = file.WriteString(value)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		return &AttributeError{Op: "write", Name: name, Path: path, Err: err}
	}
	return nil
}
