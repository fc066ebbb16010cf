package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kbukum/flowkit/component"
)

// ComponentStatus holds the tracked status of a component during bootstrap.
type ComponentStatus struct {
	Name    string
	Status  string
	Healthy bool
}

// TelemetryInfo describes where traces and metrics are exported.
type TelemetryInfo struct {
	Endpoint   string
	SampleRate float64
}

// Summary tracks and displays the application bootstrap process.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	components      []ComponentStatus
	telemetry       *TelemetryInfo
	out             io.Writer
}

// NewSummary creates a new bootstrap summary tracker writing to stdout.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{
		serviceName: serviceName,
		version:     version,
		components:  make([]ComponentStatus, 0),
		out:         os.Stdout,
	}
}

// SetOutput redirects the summary. A nil writer discards it.
func (s *Summary) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	s.out = w
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackComponent adds a component's bootstrap status to the summary.
func (s *Summary) TrackComponent(name, status string, healthy bool) {
	s.components = append(s.components, ComponentStatus{
		Name:    name,
		Status:  status,
		Healthy: healthy,
	})
}

// TrackTelemetry records the OTLP export target.
func (s *Summary) TrackTelemetry(endpoint string, sampleRate float64) {
	s.telemetry = &TelemetryInfo{Endpoint: endpoint, SampleRate: sampleRate}
}

// DisplaySummary prints the bootstrap summary including live health from the registry.
func (s *Summary) DisplaySummary(registry *component.Registry) {
	w := s.out
	fmt.Fprintf(w, "\n🚀 %s v%s started in %.2fs\n\n",
		s.serviceName, s.version, s.startupDuration.Seconds())

	var described []component.Component
	if registry != nil {
		described = registry.All()
	}

	if len(described) > 0 {
		fmt.Fprintf(w, "📊 Schedulers\n")
		for i, c := range described {
			name, details := c.Name(), ""
			if d, ok := c.(component.Describable); ok {
				desc := d.Describe()
				if desc.Name != "" {
					name = desc.Name
				}
				details = desc.Details
			}
			fmt.Fprintf(w, "   %s %s: %s\n", treePrefix(i, len(described)), name, details)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(s.components) > 0 {
		fmt.Fprintf(w, "📦 Components\n")
		healthy := 0
		for i, c := range s.components {
			icon := statusIcon(c.Status, c.Healthy)
			fmt.Fprintf(w, "   %s %s %s (%s)\n", treePrefix(i, len(s.components)), icon, c.Name, c.Status)
			if c.Healthy {
				healthy++
			}
		}
		fmt.Fprintf(w, "\n")

		total := len(s.components)
		if healthy == total {
			fmt.Fprintf(w, "✅ All components healthy (%d/%d)\n", healthy, total)
		} else {
			fmt.Fprintf(w, "⚠️  Some components have issues (%d/%d healthy)\n", healthy, total)
		}
	}

	if len(described) == 0 && len(s.components) == 0 {
		fmt.Fprintf(w, "   └── No components registered\n")
	}

	if s.telemetry != nil {
		fmt.Fprintf(w, "\n📡 Telemetry\n")
		fmt.Fprintf(w, "   └── otlp → %s (sample rate %.2f)\n", s.telemetry.Endpoint, s.telemetry.SampleRate)
	}

	if registry != nil {
		healthResults := registry.HealthAll(context.Background())
		if len(healthResults) > 0 {
			fmt.Fprintf(w, "\n🏥 Health Check\n")
			for i, h := range healthResults {
				icon := healthStatusIcon(h.Status)
				msg := ""
				if h.Message != "" {
					msg = fmt.Sprintf(" (%s)", h.Message)
				}
				fmt.Fprintf(w, "   %s %s %s: %s%s\n", treePrefix(i, len(healthResults)), icon, h.Name, strings.ToLower(string(h.Status)), msg)
			}
		}
	}

	fmt.Fprintf(w, "\n")
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func statusIcon(status string, healthy bool) string {
	if !healthy {
		return "❌"
	}
	switch status {
	case "active", "running", "healthy":
		return "✅"
	case "idle":
		return "⚡"
	case "stopped", "disabled":
		return "⏸️"
	case "error", "failed":
		return "❌"
	default:
		return "⚠️"
	}
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
