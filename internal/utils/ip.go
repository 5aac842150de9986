package utils

import "net"

// Compare compares two IP addresses in their 16-byte form.
// It returns -1, 0 or 1.
func Compare(a, b net.IP) int {
	a = a.To16()
	b = b.To16()
	for i := 0; i < 16; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

// SameFamily reports whether both addresses are IPv4 or both IPv6.
func SameFamily(a, b net.IP) bool {
	return (a.To4() != nil) == (b.To4() != nil)
}

// CIDRBounds returns the first and last address of a network in 16-byte form.
func CIDRBounds(cidr *net.IPNet) (net.IP, net.IP) {
	if cidr == nil {
		return nil, nil
	}
	ip := cidr.IP.To16()
	mask := cidr.Mask
	if ip == nil || mask == nil {
		return nil, nil
	}

	start := ip.Mask(mask).To16()
	if start == nil {
		return nil, nil
	}
	end := make(net.IP, len(start))
	copy(end, start)

	// An IPv4 mask applies to the last 4 bytes of the 16-byte form.
	if len(mask) == 4 {
		for i := 0; i < 4; i++ {
			end[12+i] |= ^mask[i]
		}
	} else {
		for i := 0; i < len(mask); i++ {
			end[i] |= ^mask[i]
		}
	}
	return start, end
}
