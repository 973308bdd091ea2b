// ABOUTME: mDNS discovery so control-room tooling can find appliances
// ABOUTME: Advertises _cambox._tcp with the monitor port and identity TXT records
package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/sirupsen/logrus"
)

// ServiceType is the mDNS service advertised by every appliance.
const ServiceType = "_cambox._tcp"

const defaultBrowseTimeout = 3 * time.Second

// Config holds advertisement configuration.
type Config struct {
	Instance string // instance name, the appliance hostname
	Port     int    // monitor listen port
	Version  string
}

// Appliance describes a discovered camera box.
type Appliance struct {
	Name     string
	Host     string
	Port     int
	Hostname string
	Version  string
}

// Addr returns the appliance's monitor address.
func (a Appliance) Addr() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Manager owns the mDNS advertisement lifecycle.
type Manager struct {
	config Config
	log    *logrus.Entry
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a discovery manager.
func NewManager(config Config, log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.WithField("component", "discovery")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		config: config,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Advertise publishes the appliance until Stop is called.
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("local interfaces: %w", err)
	}

	txt := []string{
		"hostname=" + m.config.Instance,
		"version=" + m.config.Version,
	}

	service, err := mdns.NewMDNSService(
		m.config.Instance,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		txt,
	)
	if err != nil {
		return fmt.Errorf("create mdns service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("create mdns server: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"instance": m.config.Instance,
		"port":     m.config.Port,
		"type":     ServiceType,
	}).Info("advertising appliance")

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Stop withdraws the advertisement.
func (m *Manager) Stop() {
	m.cancel()
}

// Browse runs a one-shot query and returns every appliance that
// answered within the timeout.
func Browse(timeout time.Duration) ([]Appliance, error) {
	if timeout <= 0 {
		timeout = defaultBrowseTimeout
	}

	entries := make(chan *mdns.ServiceEntry, 10)
	var found []Appliance
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			a := Appliance{Name: entry.Name, Port: entry.Port}
			switch {
			case entry.AddrV4 != nil:
				a.Host = entry.AddrV4.String()
			case entry.AddrV6 != nil:
				a.Host = entry.AddrV6.String()
			default:
				continue
			}
			for _, field := range entry.InfoFields {
				if v, ok := strings.CutPrefix(field, "hostname="); ok {
					a.Hostname = v
				}
				if v, ok := strings.CutPrefix(field, "version="); ok {
					a.Version = v
				}
			}
			found = append(found, a)
		}
	}()

	params := &mdns.QueryParam{
		Service: ServiceType,
		Domain:  "local",
		Timeout: timeout,
		Entries: entries,
	}
	err := mdns.Query(params)
	close(entries)
	<-done

	if err != nil {
		return nil, fmt.Errorf("mdns query: %w", err)
	}
	return found, nil
}

// getLocalIPs returns the non-loopback IPv4 addresses of up interfaces.
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
