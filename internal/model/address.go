package model

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"policy-shadow-analyzer/internal/utils"
)

// AddressObject is a single concrete address value: a CIDR network, an IP
// range or an FQDN. The interface is closed; the only implementations are
// IPNetwork, IPRange and FQDN.
type AddressObject interface {
	// Name returns the object's reference name. Literal values resolved
	// on the fly use the literal itself as name.
	Name() string
	// Value returns the address value in its textual form.
	Value() string
	// CoveredBy reports whether every address matched by this object is
	// also matched by other. It is defined only between compatible
	// variants; an FQDN is covered only by an identical FQDN.
	CoveredBy(other AddressObject) bool

	sealed()
}

// InvalidRangeError reports an IP range whose first address is greater than
// its last, or whose ends mix address families.
type InvalidRangeError struct {
	Name  string
	Value string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid IP range %q: %s", e.Name, e.Value)
}

// IPNetwork is an address object holding a CIDR block.
type IPNetwork struct {
	name  string
	ipnet *net.IPNet
}

// NewIPNetwork parses value as a CIDR block or a bare IP address
// (treated as /32 or /128). Host bits are not required to be zero.
func NewIPNetwork(name, value string) (*IPNetwork, error) {
	ip, ipnet, err := net.ParseCIDR(value)
	if err != nil {
		ip = net.ParseIP(value)
		if ip == nil {
			return nil, fmt.Errorf("value %q is not a valid IP network", value)
		}
		mask := net.CIDRMask(32, 32)
		if ip.To4() == nil {
			mask = net.CIDRMask(128, 128)
		}
		ipnet = &net.IPNet{IP: ip, Mask: mask}
	}
	// Normalize host bits away so bounds math starts at the network address.
	ipnet.IP = ip.Mask(ipnet.Mask)
	return &IPNetwork{name: name, ipnet: ipnet}, nil
}

func (a *IPNetwork) Name() string  { return a.name }
func (a *IPNetwork) Value() string { return a.ipnet.String() }
func (a *IPNetwork) sealed()       {}

// Network returns the underlying CIDR block.
func (a *IPNetwork) Network() *net.IPNet { return a.ipnet }

func (a *IPNetwork) CoveredBy(other AddressObject) bool {
	start, end := utils.CIDRBounds(a.ipnet)
	return rangeCoveredBy(start, end, other)
}

// IPRange is an address object holding an inclusive low-high address pair.
type IPRange struct {
	name  string
	start net.IP
	end   net.IP
}

// NewIPRange parses value as a dash-separated pair of IP addresses.
// Construction fails with an InvalidRangeError when the first address is
// greater than the last or the two ends mix address families.
func NewIPRange(name, value string) (*IPRange, error) {
	parts := strings.SplitN(value, "-", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("value %q is not a valid IP range", value)
	}
	start := net.ParseIP(strings.TrimSpace(parts[0]))
	end := net.ParseIP(strings.TrimSpace(parts[1]))
	if start == nil || end == nil {
		return nil, fmt.Errorf("value %q is not a valid IP range", value)
	}
	if !utils.SameFamily(start, end) {
		return nil, &InvalidRangeError{Name: name, Value: "addresses mix IPv4 and IPv6"}
	}
	if utils.Compare(start, end) > 0 {
		return nil, &InvalidRangeError{Name: name, Value: "last IP address must not be less than the first"}
	}
	return &IPRange{name: name, start: start.To16(), end: end.To16()}, nil
}

func (a *IPRange) Name() string  { return a.name }
func (a *IPRange) Value() string { return fmt.Sprintf("%s-%s", a.start, a.end) }
func (a *IPRange) sealed()       {}

// Bounds returns the inclusive ends of the range.
func (a *IPRange) Bounds() (net.IP, net.IP) { return a.start, a.end }

func (a *IPRange) CoveredBy(other AddressObject) bool {
	return rangeCoveredBy(a.start, a.end, other)
}

var fqdnPattern = regexp.MustCompile(`^([a-z0-9-]{1,63}\.)+[a-z]{2,63}$`)

// FQDN is an address object holding a fully qualified domain name.
type FQDN struct {
	name string
	host string
}

// NewFQDN validates value as a hostname. The value is lowercased first.
func NewFQDN(name, value string) (*FQDN, error) {
	host := strings.ToLower(value)
	if !fqdnPattern.MatchString(host) {
		return nil, fmt.Errorf("value %q is not a valid FQDN", value)
	}
	return &FQDN{name: name, host: host}, nil
}

func (a *FQDN) Name() string  { return a.name }
func (a *FQDN) Value() string { return a.host }
func (a *FQDN) sealed()       {}

func (a *FQDN) CoveredBy(other AddressObject) bool {
	o, ok := other.(*FQDN)
	return ok && a.host == o.host
}

// rangeCoveredBy reports whether the inclusive start-end span fits entirely
// inside other. FQDNs never cover an IP span.
func rangeCoveredBy(start, end net.IP, other AddressObject) bool {
	if start == nil || end == nil {
		return false
	}
	var otherStart, otherEnd net.IP
	switch o := other.(type) {
	case *IPNetwork:
		otherStart, otherEnd = utils.CIDRBounds(o.ipnet)
	case *IPRange:
		otherStart, otherEnd = o.start, o.end
	case *FQDN:
		return false
	default:
		return false
	}
	if otherStart == nil || otherEnd == nil || !utils.SameFamily(start, otherStart) {
		return false
	}
	return utils.Compare(start, otherStart) >= 0 && utils.Compare(end, otherEnd) <= 0
}
