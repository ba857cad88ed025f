package fetcher

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// StealthConfig holds the fingerprint values reported to page scripts.
type StealthConfig struct {
	WindowSize string

	ViewportWidth  int
	ViewportHeight int

	// Language override (e.g., "en-US")
	Language string

	// Platform override (e.g., "Win32", "MacIntel", "Linux x86_64")
	Platform string

	// Hardware concurrency (number of CPU cores to report)
	HardwareConcurrency int

	// DeviceMemory (GB of RAM to report)
	DeviceMemory int
}

// NewStealthConfig returns a desktop fingerprint sized to windowSize
// ("width,height"). An empty or malformed size picks a common viewport.
func NewStealthConfig(windowSize string) *StealthConfig {
	w, h, ok := parseWindowSize(windowSize)
	if !ok {
		viewports := []struct{ w, h int }{
			{1920, 1080}, {1366, 768}, {1536, 864}, {1440, 900},
		}
		vp := viewports[rand.Intn(len(viewports))]
		w, h = vp.w, vp.h
	}

	platforms := []string{"Win32", "MacIntel", "Linux x86_64"}

	return &StealthConfig{
		WindowSize:          fmt.Sprintf("%d,%d", w, h),
		ViewportWidth:       w,
		ViewportHeight:      h,
		Language:            "en-US",
		Platform:            platforms[rand.Intn(len(platforms))],
		HardwareConcurrency: 4 + rand.Intn(13), // 4-16 cores
		DeviceMemory:        8,
	}
}

func parseWindowSize(s string) (int, int, bool) {
	ws, hs, found := strings.Cut(s, ",")
	if !found {
		return 0, 0, false
	}
	w, err := strconv.Atoi(strings.TrimSpace(ws))
	if err != nil || w <= 0 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(hs))
	if err != nil || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// StealthJS returns JavaScript to inject for fingerprint spoofing.
// It runs in every document before the page's own scripts.
func (sc *StealthConfig) StealthJS() string {
	return fmt.Sprintf(`
Object.defineProperty(navigator, 'platform', { get: () => '%s' });
Object.defineProperty(navigator, 'language', { get: () => '%s' });
Object.defineProperty(navigator, 'languages', { get: () => ['%s', 'en'] });
Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d });
Object.defineProperty(navigator, 'deviceMemory', { get: () => %d });
Object.defineProperty(navigator, 'webdriver', { get: () => false });
Object.defineProperty(screen, 'width', { get: () => %d });
Object.defineProperty(screen, 'height', { get: () => %d });

const originalQuery = window.navigator.permissions.query;
window.navigator.permissions.query = (parameters) => (
	parameters.name === 'notifications' ?
		Promise.resolve({ state: Notification.permission }) :
		originalQuery(parameters)
);
`, sc.Platform, sc.Language, sc.Language, sc.HardwareConcurrency, sc.DeviceMemory,
		sc.ViewportWidth, sc.ViewportHeight)
}
