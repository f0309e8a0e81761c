package device

import (
	"net/netip"
	"strconv"
	"strings"

	"github.com/mssola/user_agent"

	"github.com/onegreenvn/green-session-service/internal/models"
)

const (
	LocationLocal   = "Local Network"
	LocationPublic  = "Public Network"
	LocationUnknown = "Unknown"
)

// Parser turns a raw user-agent into a best-effort device summary
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse never fails; unreadable input yields the Unknown sentinel
func (p *Parser) Parse(raw string) (info models.DeviceInfo) {
	raw = models.TruncateUserAgent(strings.TrimSpace(raw))
	if raw == "" {
		return models.UnknownDeviceInfo(raw)
	}
	defer func() {
		if r := recover(); r != nil {
			info = models.UnknownDeviceInfo(raw)
		}
	}()

	ua := user_agent.New(raw)
	browser, version := ua.Browser()
	osName := ua.OS()

	info = models.DeviceInfo{
		Device:   deviceLabel(ua),
		Browser:  clamp(joinNonEmpty(browser, version)),
		OS:       clamp(osName),
		IsMobile: ua.Mobile(),
		Raw:      raw,
	}
	if info.Browser == models.UnknownDevice && info.OS == models.UnknownDevice && !ua.Bot() {
		info.Device = models.UnknownDevice
	}
	return info
}

func deviceLabel(ua *user_agent.UserAgent) string {
	switch {
	case ua.Bot():
		return "Bot"
	case ua.Mobile():
		return "Mobile"
	default:
		return "Desktop"
	}
}

// MaskIP hides the host part of an address. IPv4 keeps the first two octets,
// IPv6 the first four hextets. Anything else is returned unchanged.
func MaskIP(ip string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return ip
	}
	addr = addr.Unmap()
	if addr.Is4() {
		b := addr.As4()
		return strconv.Itoa(int(b[0])) + "." + strconv.Itoa(int(b[1])) + ".***.***"
	}
	full := addr.StringExpanded()
	groups := strings.Split(full, ":")
	return strings.Join(groups[:4], ":") + ":****"
}

// Location gives a coarse label for where an address sits
func Location(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return LocationUnknown
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return LocationUnknown
	}
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() {
		return LocationLocal
	}
	return LocationPublic
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return ""
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.UnknownDevice
	}
	return s
}

func clamp(s string) string {
	return orUnknown(models.TruncateText(s, models.MaxDeviceFieldLength))
}
