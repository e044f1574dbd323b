package utils

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackpal/gateway"
)

type ContextKey string

const (
	RequestIDKey ContextKey = "reqId"
)

// GetLocalIP returns the LAN address other devices should use to reach us.
// It looks for the interface that routes to the default gateway and falls
// back to the dial-a-dummy-address trick when gateway discovery fails.
func GetLocalIP() (string, error) {
	if gwIP, err := gateway.DiscoverGateway(); err == nil {
		if ip, err := localIPForGateway(gwIP); err == nil {
			return ip, nil
		}
	}

	// Connect to a dummy address; doesn't have to be reachable
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}

func localIPForGateway(gwIP net.IP) (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.To4() == nil || ipNet.IP.IsLoopback() {
			continue
		}
		if ipNet.Contains(gwIP) {
			return ipNet.IP.String(), nil
		}
	}

	return "", errors.New("no interface on the gateway's subnet")
}

// GetClientIP does not consider reverse proxies or load balancers
func GetClientIP(r *http.Request) (string, error) {
	slog.Debug("Getting client IP", "remoteAddr", r.RemoteAddr)
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "", err
	}
	return ip, nil
}

func GetClientHostname(r *http.Request) (string, error) {
	ip, err := GetClientIP(r)

	if err != nil {
		return "", err
	}

	names, err := net.LookupAddr(ip)
	if err != nil || len(names) == 0 {
		slog.Debug("Failed to get client hostname", "error", err)
		return ip, nil // fallback to IP if no hostname found
	}

	// names may contain trailing dot
	return strings.TrimSuffix(names[0], "."), nil
}

var ErrForbiddenPath = errors.New("forbidden path")

// SecureJoin ensures that the joined path is within the base directory
func SecureJoin(base, path string) (string, error) {
	// get root path
	absRoot, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}

	// because macOS is a special snowflake
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", err
	}
	absRoot = filepath.Clean(absRoot)

	targetPath := filepath.Join(absRoot, path)

	absPath, err := filepath.Abs(targetPath)
	if err != nil {
		return "", err
	}

	parentPath := filepath.Dir(absPath)
	fileName := filepath.Base(absPath)

	absPath, err = filepath.EvalSymlinks(absPath)
	if err != nil && os.IsNotExist(err) {
		evalParent, err := filepath.EvalSymlinks(parentPath)
		if err == nil {
			absPath = filepath.Join(evalParent, fileName)
		}
	} else if err != nil {
		return "", err
	}

	absPath = filepath.Clean(absPath)

	// prevent prefix matching for path traversal
	if !strings.HasPrefix(absPath, absRoot+(string(filepath.Separator))) && absPath != absRoot {
		return "", ErrForbiddenPath
	}

	return absPath, nil
}

var ErrUnsafeFilename = errors.New("unsafe filename")

// SanitizeFilename reduces an uploaded filename to a name that is safe to
// create inside the upload directory. Directory components are stripped,
// anything outside [a-zA-Z0-9.] becomes '_', and names with more than one
// dot are rejected.
func SanitizeFilename(name string) (string, error) {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." || name == ".." {
		return "", ErrUnsafeFilename
	}

	var b strings.Builder
	dots := 0
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			dots++
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	if dots > 1 {
		return "", ErrUnsafeFilename
	}

	sanitized := b.String()
	if strings.Trim(sanitized, "._") == "" {
		return "", ErrUnsafeFilename
	}

	return sanitized, nil
}
