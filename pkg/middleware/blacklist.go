package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/opencitations/ramose/pkg/logger"
)

// IPBlacklist blocks requests from specific IPs or CIDR ranges before
// they reach the Operation Executor.
type IPBlacklist struct {
	mu       sync.RWMutex
	ips      map[string]bool
	cidrs    []*net.IPNet
	reason   map[string]string
	useProxy bool
}

// BlacklistConfig configures an IPBlacklist.
type BlacklistConfig struct {
	// UseProxy extracts the client IP from X-Forwarded-For/X-Real-IP
	// instead of RemoteAddr.
	UseProxy bool
}

// NewIPBlacklist returns an empty blacklist.
func NewIPBlacklist(config BlacklistConfig) *IPBlacklist {
	return &IPBlacklist{
		ips:      make(map[string]bool),
		cidrs:    make([]*net.IPNet, 0),
		reason:   make(map[string]string),
		useProxy: config.UseProxy,
	}
}

// BlockIP blocks a single IP address.
func (bl *IPBlacklist) BlockIP(ip string, reason string) error {
	if net.ParseIP(ip) == nil {
		return &net.ParseError{Type: "IP address", Text: ip}
	}

	bl.mu.Lock()
	defer bl.mu.Unlock()
	bl.ips[ip] = true
	if reason != "" {
		bl.reason[ip] = reason
	}
	return nil
}

// BlockCIDR blocks an IP range in CIDR notation.
func (bl *IPBlacklist) BlockCIDR(cidr string, reason string) error {
	_, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return err
	}

	bl.mu.Lock()
	defer bl.mu.Unlock()
	bl.cidrs = append(bl.cidrs, ipNet)
	if reason != "" {
		bl.reason[cidr] = reason
	}
	return nil
}

// UnblockIP removes an IP from the blacklist.
func (bl *IPBlacklist) UnblockIP(ip string) {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	delete(bl.ips, ip)
	delete(bl.reason, ip)
}

// UnblockCIDR removes a CIDR range from the blacklist.
func (bl *IPBlacklist) UnblockCIDR(cidr string) {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	for i, ipNet := range bl.cidrs {
		if ipNet.String() == cidr {
			bl.cidrs = append(bl.cidrs[:i], bl.cidrs[i+1:]...)
			break
		}
	}
	delete(bl.reason, cidr)
}

// IsBlocked reports whether ip matches a blocked IP or CIDR range.
func (bl *IPBlacklist) IsBlocked(ip string) (blocked bool, reason string) {
	bl.mu.RLock()
	defer bl.mu.RUnlock()

	if bl.ips[ip] {
		return true, bl.reason[ip]
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false, ""
	}

	for _, ipNet := range bl.cidrs {
		if ipNet.Contains(parsedIP) {
			cidr := ipNet.String()
			if reason, ok := bl.reason[cidr]; ok {
				return true, reason
			}
			return true, ""
		}
	}

	return false, ""
}

// GetBlacklist returns every blocked IP and CIDR range.
func (bl *IPBlacklist) GetBlacklist() (ips []string, cidrs []string) {
	bl.mu.RLock()
	defer bl.mu.RUnlock()

	ips = make([]string, 0, len(bl.ips))
	for ip := range bl.ips {
		ips = append(ips, ip)
	}
	cidrs = make([]string, 0, len(bl.cidrs))
	for _, ipNet := range bl.cidrs {
		cidrs = append(cidrs, ipNet.String())
	}
	return ips, cidrs
}

// Middleware rejects requests from a blocked IP with 403.
func (bl *IPBlacklist) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var clientIP string
		if bl.useProxy {
			clientIP = getClientIP(r)
		} else if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
			clientIP = r.RemoteAddr[:idx]
		} else {
			clientIP = r.RemoteAddr
		}
		clientIP = strings.Trim(clientIP, "[]")

		if blocked, reason := bl.IsBlocked(clientIP); blocked {
			response := map[string]interface{}{"error": "forbidden", "message": "Access denied"}
			if reason != "" {
				response["reason"] = reason
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			if err := json.NewEncoder(w).Encode(response); err != nil {
				logger.Debug("failed to write blacklist response: %v", err)
			}
			return
		}

		next.ServeHTTP(w, r)
	})
}

// StatsHandler exposes the current blacklist contents.
func (bl *IPBlacklist) StatsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ips, cidrs := bl.GetBlacklist()
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]interface{}{
			"blocked_ips":   ips,
			"blocked_cidrs": cidrs,
			"total_ips":     len(ips),
			"total_cidrs":   len(cidrs),
		})
		if err != nil {
			logger.Debug("failed to encode blacklist stats: %v", err)
		}
	})
}
