package browser

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Backend identifiers, in factory priority order.
const (
	BackendCDPChrome  = "cdp-chrome"
	BackendCDPEdge    = "cdp-edge"
	BackendHybrid     = "hybrid"
	BackendPlaywright = "playwright"
)

// EngineKind identifies a detected browser engine family.
type EngineKind string

const (
	EngineKindChrome   EngineKind = "chrome"
	EngineKindChromium EngineKind = "chromium"
	EngineKindBrave    EngineKind = "brave"
	EngineKindEdge     EngineKind = "edge"
)

// Executable is a browser binary found on the host.
type Executable struct {
	Kind EngineKind
	Path string
}

// CapabilityReport lists the backend identifiers the host can run, in
// priority order. Immutable after creation; Detect recomputes it every
// call because binaries come and go.
type CapabilityReport struct {
	Backends    []string
	Executables []Executable
}

// Has reports whether the backend identifier is available.
func (r *CapabilityReport) Has(backend string) bool {
	for _, b := range r.Backends {
		if b == backend {
			return true
		}
	}
	return false
}

// chromeExecutable returns the first chromium-family binary, or nil.
func (r *CapabilityReport) chromeExecutable() *Executable {
	for i := range r.Executables {
		if r.Executables[i].Kind != EngineKindEdge {
			return &r.Executables[i]
		}
	}
	return nil
}

// edgeExecutable returns the Edge binary, or nil.
func (r *CapabilityReport) edgeExecutable() *Executable {
	for i := range r.Executables {
		if r.Executables[i].Kind == EngineKindEdge {
			return &r.Executables[i]
		}
	}
	return nil
}

// Detect probes the host for installed engines via filesystem path
// checks and shell lookups. The playwright identifier is always present:
// its driver downloads engines on demand, so it serves as the fallback
// when nothing native is found.
func Detect() *CapabilityReport {
	report := &CapabilityReport{}

	seen := make(map[string]bool)
	add := func(exe *Executable) {
		if exe == nil || seen[exe.Path] {
			return
		}
		seen[exe.Path] = true
		report.Executables = append(report.Executables, *exe)
	}

	for _, exe := range findKnownPaths() {
		e := exe
		add(&e)
	}
	for _, exe := range findInPath() {
		e := exe
		add(&e)
	}

	backendSeen := make(map[string]bool)
	addBackend := func(id string) {
		if !backendSeen[id] {
			backendSeen[id] = true
			report.Backends = append(report.Backends, id)
		}
	}

	if report.chromeExecutable() != nil {
		addBackend(BackendCDPChrome)
	}
	if report.edgeExecutable() != nil {
		addBackend(BackendCDPEdge)
	}
	if len(report.Executables) > 0 {
		addBackend(BackendHybrid)
	}
	addBackend(BackendPlaywright)

	return report
}

// findInPath resolves well-known binary names through the shell lookup
// path. Covers installs the fixed path lists miss.
func findInPath() []Executable {
	names := []struct {
		kind EngineKind
		name string
	}{
		{EngineKindChrome, "google-chrome"},
		{EngineKindChrome, "google-chrome-stable"},
		{EngineKindChromium, "chromium"},
		{EngineKindChromium, "chromium-browser"},
		{EngineKindBrave, "brave-browser"},
		{EngineKindEdge, "microsoft-edge"},
		{EngineKindEdge, "msedge"},
	}

	var found []Executable
	for _, n := range names {
		if path, err := exec.LookPath(n.name); err == nil {
			found = append(found, Executable{Kind: n.kind, Path: path})
		}
	}
	return found
}

func findKnownPaths() []Executable {
	switch runtime.GOOS {
	case "darwin":
		return probeCandidates(darwinCandidates())
	case "linux":
		return probeCandidates(linuxCandidates())
	case "windows":
		return probeCandidates(windowsCandidates())
	default:
		return nil
	}
}

type candidate struct {
	kind EngineKind
	path string
}

func probeCandidates(candidates []candidate) []Executable {
	var found []Executable
	for _, c := range candidates {
		if fileExists(c.path) {
			found = append(found, Executable{Kind: c.kind, Path: c.path})
		}
	}
	return found
}

func darwinCandidates() []candidate {
	home := os.Getenv("HOME")
	return []candidate{
		{EngineKindChrome, "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"},
		{EngineKindChrome, filepath.Join(home, "Applications/Google Chrome.app/Contents/MacOS/Google Chrome")},
		{EngineKindBrave, "/Applications/Brave Browser.app/Contents/MacOS/Brave Browser"},
		{EngineKindEdge, "/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge"},
		{EngineKindChromium, "/Applications/Chromium.app/Contents/MacOS/Chromium"},
	}
}

func linuxCandidates() []candidate {
	return []candidate{
		{EngineKindChrome, "/usr/bin/google-chrome"},
		{EngineKindChrome, "/usr/bin/google-chrome-stable"},
		{EngineKindBrave, "/usr/bin/brave-browser"},
		{EngineKindBrave, "/snap/bin/brave"},
		{EngineKindEdge, "/usr/bin/microsoft-edge"},
		{EngineKindEdge, "/usr/bin/microsoft-edge-stable"},
		{EngineKindChromium, "/usr/bin/chromium"},
		{EngineKindChromium, "/usr/bin/chromium-browser"},
		{EngineKindChromium, "/snap/bin/chromium"},
	}
}

func windowsCandidates() []candidate {
	localAppData := os.Getenv("LOCALAPPDATA")
	programFiles := os.Getenv("ProgramFiles")
	if programFiles == "" {
		programFiles = `C:\Program Files`
	}
	programFilesX86 := os.Getenv("ProgramFiles(x86)")
	if programFilesX86 == "" {
		programFilesX86 = `C:\Program Files (x86)`
	}

	var cands []candidate
	if localAppData != "" {
		cands = append(cands,
			candidate{EngineKindChrome, filepath.Join(localAppData, "Google", "Chrome", "Application", "chrome.exe")},
			candidate{EngineKindBrave, filepath.Join(localAppData, "BraveSoftware", "Brave-Browser", "Application", "brave.exe")},
			candidate{EngineKindEdge, filepath.Join(localAppData, "Microsoft", "Edge", "Application", "msedge.exe")},
		)
	}
	cands = append(cands,
		candidate{EngineKindChrome, filepath.Join(programFiles, "Google", "Chrome", "Application", "chrome.exe")},
		candidate{EngineKindChrome, filepath.Join(programFilesX86, "Google", "Chrome", "Application", "chrome.exe")},
		candidate{EngineKindEdge, filepath.Join(programFiles, "Microsoft", "Edge", "Application", "msedge.exe")},
	)
	return cands
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
