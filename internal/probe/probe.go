// Package probe checks whether the cameras and NVRs listed in the inventory
// answer on the network.
package probe

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/martinsuchenak/camdash/internal/log"
	"github.com/martinsuchenak/camdash/internal/model"
)

// Ports cameras and NVRs commonly listen on: web UI, RTSP and the vendor SDK
// ports (Hikvision 8000, Dahua 37777).
var DefaultPorts = []int{80, 443, 554, 8000, 37777}

const (
	oidSysDescr  = ".1.3.6.1.2.1.1.1.0"
	oidSysUptime = ".1.3.6.1.2.1.1.3.0"

	defaultTimeout     = 2 * time.Second
	defaultConcurrency = 10
)

// Result is the outcome of probing one device
type Result struct {
	Row       int           `json:"row"`
	Name      string        `json:"name,omitempty"`
	Location  string        `json:"location,omitempty"`
	IP        string        `json:"ip"`
	Skipped   bool          `json:"skipped,omitempty"`
	Reachable bool          `json:"reachable"`
	OpenPorts []int         `json:"open_ports,omitempty"`
	SysDescr  string        `json:"sys_descr,omitempty"`
	Uptime    time.Duration `json:"uptime,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Summary counts probe outcomes
type Summary struct {
	Probed      int `json:"probed"`
	Reachable   int `json:"reachable"`
	Unreachable int `json:"unreachable"`
	Skipped     int `json:"skipped"`
}

// Prober probes devices over TCP and, with a community set, SNMP v2c
type Prober struct {
	Community   string // empty disables SNMP
	Ports       []int
	Timeout     time.Duration
	Concurrency int
	SNMPPort    uint16
}

// New creates a prober with the default ports and timeouts
func New(community string) *Prober {
	return &Prober{
		Community:   community,
		Ports:       DefaultPorts,
		Timeout:     defaultTimeout,
		Concurrency: defaultConcurrency,
		SNMPPort:    161,
	}
}

// ProbeAll probes every device, keeping input order. Devices without a valid
// IP address are reported as skipped.
func (p *Prober) ProbeAll(ctx context.Context, devices []model.Device) []Result {
	results := make([]Result, len(devices))

	concurrency := p.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	for i, d := range devices {
		wg.Add(1)
		go func(i int, d model.Device) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = p.ProbeDevice(ctx, d)
		}(i, d)
	}
	wg.Wait()

	s := Summarize(results)
	log.Info("Probe completed", "probed", s.Probed, "reachable", s.Reachable, "skipped", s.Skipped)
	return results
}

// ProbeDevice probes a single device
func (p *Prober) ProbeDevice(ctx context.Context, d model.Device) Result {
	r := Result{
		Row:      d.Row,
		Name:     d.Name,
		Location: d.Location,
		IP:       strings.TrimSpace(d.IPAddress),
	}

	if r.IP == "" {
		r.Skipped = true
		r.Error = "no IP address"
		return r
	}
	if net.ParseIP(r.IP) == nil {
		r.Skipped = true
		r.Error = fmt.Sprintf("invalid IP address %q", r.IP)
		return r
	}

	r.OpenPorts = p.checkTCPPorts(ctx, r.IP)

	if p.Community != "" {
		descr, uptime, err := p.querySysInfo(ctx, r.IP)
		if err != nil {
			log.Debug("SNMP query failed", "ip", r.IP, "error", err)
			if len(r.OpenPorts) == 0 {
				r.Error = err.Error()
			}
		} else {
			r.SysDescr = descr
			r.Uptime = uptime
		}
	}

	r.Reachable = len(r.OpenPorts) > 0 || r.SysDescr != "" || r.Uptime > 0
	if r.Reachable {
		r.Error = ""
	} else if r.Error == "" {
		r.Error = "no response"
	}
	return r
}

// checkTCPPorts returns the ports accepting TCP connections, sorted
func (p *Prober) checkTCPPorts(ctx context.Context, ip string) []int {
	var openPorts []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	dialer := net.Dialer{Timeout: p.timeout()}
	for _, port := range p.Ports {
		wg.Add(1)
		go func(port int) {
			defer wg.Done()

			conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip, fmt.Sprint(port)))
			if err != nil {
				return
			}
			conn.Close()

			mu.Lock()
			openPorts = append(openPorts, port)
			mu.Unlock()
			log.Debug("Port open", "ip", ip, "port", port)
		}(port)
	}
	wg.Wait()

	sort.Ints(openPorts)
	return openPorts
}

// querySysInfo reads sysDescr and sysUpTime over SNMP v2c
func (p *Prober) querySysInfo(ctx context.Context, ip string) (string, time.Duration, error) {
	client := &gosnmp.GoSNMP{
		Target:    ip,
		Port:      p.SNMPPort,
		Community: p.Community,
		Version:   gosnmp.Version2c,
		Timeout:   p.timeout(),
		Retries:   1,
		MaxOids:   gosnmp.MaxOids,
		Context:   ctx,
	}
	if err := client.Connect(); err != nil {
		return "", 0, fmt.Errorf("SNMP connect failed: %w", err)
	}
	defer client.Conn.Close()

	result, err := client.Get([]string{oidSysDescr, oidSysUptime})
	if err != nil {
		return "", 0, fmt.Errorf("SNMP Get failed: %w", err)
	}
	if result.Error != gosnmp.NoError {
		return "", 0, fmt.Errorf("SNMP error: %s", result.Error)
	}
	return parseSysInfo(result.Variables)
}

// parseSysInfo extracts sysDescr and sysUpTime from a Get response
func parseSysInfo(vars []gosnmp.SnmpPDU) (string, time.Duration, error) {
	var descr string
	var uptime time.Duration
	found := false

	for _, v := range vars {
		if v.Type == gosnmp.NoSuchObject || v.Type == gosnmp.NoSuchInstance {
			continue
		}
		switch "." + strings.TrimPrefix(v.Name, ".") {
		case oidSysDescr:
			if b, ok := v.Value.([]byte); ok && v.Type == gosnmp.OctetString {
				descr = strings.TrimSpace(string(b))
				found = true
			}
		case oidSysUptime:
			if ticks, ok := v.Value.(uint32); ok && v.Type == gosnmp.TimeTicks {
				// TimeTicks count hundredths of a second.
				uptime = time.Duration(ticks) * 10 * time.Millisecond
				found = true
			}
		}
	}

	if !found {
		return "", 0, fmt.Errorf("no SNMP data returned")
	}
	return descr, uptime, nil
}

func (p *Prober) timeout() time.Duration {
	if p.Timeout <= 0 {
		return defaultTimeout
	}
	return p.Timeout
}

// Summarize counts results by outcome
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch {
		case r.Skipped:
			s.Skipped++
		case r.Reachable:
			s.Probed++
			s.Reachable++
		default:
			s.Probed++
			s.Unreachable++
		}
	}
	return s
}
