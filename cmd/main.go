package main

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/AdguardTeam/golibs/log"
	"github.com/AdguardTeam/gomitmproxy"
	"github.com/AdguardTeam/gomitmproxy/mitm"
	"github.com/Emdek/otter-browser/contentblocking"
	"github.com/Emdek/otter-browser/proxy"
	goFlags "github.com/jessevdk/go-flags"
)

// Options -- console arguments
type Options struct {
	// Verbose - should we write debug-level log
	Verbose bool `short:"v" long:"verbose" description:"Verbose output (optional)." optional:"yes" optional-value:"true"`

	// LogOutput - path to the log file
	LogOutput string `short:"o" long:"output" description:"Path to the log file. If not set, it writes to stderr." default:""`

	// ListenAddr - server listen address
	ListenAddr string `short:"l" long:"listen" description:"Listen address." default:"0.0.0.0"`

	// ListenPort - server listen port
	ListenPort int `short:"p" long:"port" description:"Listen port." default:"8080"`

	// DataDir - directory with the cached subscription files
	DataDir string `short:"d" long:"data-dir" description:"Data directory with the contentBlocking profile cache." default:"."`

	// Profiles - names of the profiles to activate; all cached profiles are used when empty
	Profiles []string `short:"f" long:"profile" description:"Profile name to activate. Can be specified multiple times."`

	// DisableCosmeticFilters - do not rewrite HTML documents
	DisableCosmeticFilters bool `long:"no-cosmetic" description:"Disable cosmetic filter injection." optional:"yes" optional-value:"true"`

	// TLSCertPath - path to the .crt with the certificate chain
	TLSCertPath string `short:"c" long:"ca-cert" description:"Path to a file with the root certificate to filter HTTPS traffic (optional)."`

	// TLSKeyPath - path to the file with the private key
	TLSKeyPath string `short:"k" long:"ca-key" description:"Path to a file with the CA private key (optional)."`
}

func main() {
	var options Options
	var parser = goFlags.NewParser(&options, goFlags.Default)

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*goFlags.Error); ok && flagsErr.Type == goFlags.ErrHelp {
			os.Exit(0)
		} else {
			os.Exit(1)
		}
	}

	run(options)
}

func run(options Options) {
	if options.Verbose {
		log.SetLevel(log.DEBUG)
	}
	if options.LogOutput != "" {
		// nolint: gosec
		file, err := os.OpenFile(options.LogOutput, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("cannot create a log file: %s", err)
		}
		defer file.Close() //nolint
		log.SetOutput(file)
	}

	log.Printf("starting proxy")

	config := createServerConfig(options)
	server, err := proxy.NewServer(config)
	if err != nil {
		log.Fatalf("failed to create new proxy server: %v", err)
	}

	err = server.Start()
	if err != nil {
		log.Fatalf("failed to start the proxy server: %v", err)
	}

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)
	<-signalChannel

	// CLOSE THE PROXY
	server.Close()
}

func createServerConfig(options Options) proxy.Config {
	listenIP := net.ParseIP(options.ListenAddr)
	if listenIP == nil {
		log.Fatalf("cannot parse %s", options.ListenAddr)
	}

	manager := contentblocking.NewManager(contentblocking.ManagerConfig{
		DataDir: options.DataDir,
	})

	for _, name := range profileNames(options, manager) {
		p := manager.AddProfile(contentblocking.ProfileConfig{Name: name})
		if !p.LoadRules() {
			log.Printf("profile %s is not loaded yet", name)

			continue
		}

		log.Printf("profile %s: %d rules", name, p.RulesCount())
	}

	config := proxy.Config{
		Manager:               manager,
		InjectCosmeticFilters: !options.DisableCosmeticFilters,
	}

	var mitmConfig *mitm.Config
	if options.TLSCertPath != "" && options.TLSKeyPath != "" {
		mitmConfig = createMITMConfig(options)
	}

	addr := &net.TCPAddr{IP: listenIP, Port: options.ListenPort}
	config.ProxyConfig = gomitmproxy.Config{
		ListenAddr: addr,
		MITMConfig: mitmConfig,
	}

	return config
}

// profileNames returns the explicitly requested profile names, or every
// cached profile found in the data directory.
func profileNames(options Options, manager *contentblocking.Manager) []string {
	if len(options.Profiles) > 0 {
		return options.Profiles
	}

	matches, err := filepath.Glob(filepath.Join(options.DataDir, "contentBlocking", "*.txt"))
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".txt"))
	}

	return names
}

func createMITMConfig(options Options) *mitm.Config {
	tlsCert, err := tls.LoadX509KeyPair(options.TLSCertPath, options.TLSKeyPath)
	if err != nil {
		log.Fatalf("failed to load root CA: %v", err)
	}
	privateKey := tlsCert.PrivateKey.(*rsa.PrivateKey)

	x509c, err := x509.ParseCertificate(tlsCert.Certificate[0])
	if err != nil {
		log.Fatalf("invalid certificate: %v", err)
	}

	mitmConfig, err := mitm.NewConfig(x509c, privateKey, nil)
	if err != nil {
		log.Fatalf("failed to create MITM config: %v", err)
	}

	mitmConfig.SetValidity(time.Hour * 24 * 7) // generate certs valid for 7 days
	mitmConfig.SetOrganization("Otter")        // cert organization
	return mitmConfig
}
