package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/thurmanmarka/skyfix"
	"github.com/thurmanmarka/skyfix/internal/config"
	"github.com/thurmanmarka/skyfix/internal/feed"
	"github.com/thurmanmarka/skyfix/internal/observability"
	"github.com/thurmanmarka/skyfix/internal/sensor"
)

// Exit codes.
const (
	exitUsage    = 1
	exitNoFix    = 2
	exitInternal = 3
)

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "-") {
		usage()
		os.Exit(exitUsage)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "fix":
		runFix(args)
	case "predict":
		runPredict(args)
	case "subpoint":
		runSubPoint(args)
	case "replay":
		runReplay(args)
	case "serve":
		if code := runServe(args); code != 0 {
			os.Exit(code)
		}
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n\n", os.Args[1])
		usage()
		os.Exit(exitUsage)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `skyfix – position from a single Sun or Moon sighting

Usage:
  skyfix fix [flags]        # reduce one sighting (alt/az, quaternion or euler)
  skyfix predict [flags]    # alt/az a sighting from a known place would read
  skyfix subpoint [flags]   # point beneath the Sun or Moon
  skyfix replay [flags]     # replay a recorded sensor session, then sight
  skyfix serve [flags]      # websocket orientation feed + HTTP sightings

Run "skyfix <subcommand> -h" for flags. Times are RFC3339 or
'YYYY-MM-DDTHH:MM' (UTC) and default to now.
`)
}

// common holds the flags every subcommand shares.
type common struct {
	configPath *string
	lunar      *string
	bodyS      *string
	timeS      *string
	jsonOut    *bool
}

func addCommon(fs *flag.FlagSet) common {
	return common{
		configPath: fs.String("config", "", "optional TOML config file"),
		lunar:      fs.String("lunar", "", "lunar model: meeus or abridged (overrides config)"),
		bodyS:      fs.String("body", "sun", "celestial body: sun or moon"),
		timeS:      fs.String("time", "", "sighting time (RFC3339 or YYYY-MM-DDTHH:MM UTC), default now"),
		jsonOut:    fs.Bool("json", false, "output result as JSON"),
	}
}

// load layers config file, environment and the -lunar flag.
func (c common) load() config.Config {
	cfg, err := config.Load(*c.configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	cfg, err = cfg.ApplyEnv()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *c.lunar != "" {
		cfg.LunarModel = *c.lunar
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return cfg
}

func (c common) body() skyfix.Body {
	b, err := skyfix.ParseBody(*c.bodyS)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return b
}

func (c common) when() time.Time {
	return parseTime(*c.timeS)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
	}
	var parseErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t
		}
		parseErr = err
	}
	log.Fatalf("could not parse -time %q: %v", s, parseErr)
	return time.Time{}
}

func parseFlags(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}
}

// ---------------------
// fix
// ---------------------

func runFix(args []string) {
	fs := flag.NewFlagSet("fix", flag.ExitOnError)
	c := addCommon(fs)

	alt := fs.Float64("alt", 0, "observed altitude in degrees")
	az := fs.Float64("az", 0, "observed azimuth in degrees, clockwise from north")
	quat := fs.String("quat", "", "platform quaternion x,y,z,w (replaces -alt/-az)")
	alpha := fs.Float64("alpha", 0, "euler alpha in degrees (with -beta, -gamma, -heading)")
	beta := fs.Float64("beta", 0, "euler beta in degrees")
	gamma := fs.Float64("gamma", 0, "euler gamma in degrees")
	heading := fs.Float64("heading", 0, "compass heading in degrees for euler readings")
	euler := fs.Bool("euler", false, "read the sighting from -alpha/-beta/-gamma/-heading")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: skyfix fix [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	parseFlags(fs, args)

	cfg := c.load()
	body, t := c.body(), c.when()
	fixer := skyfix.Fixer{Lunar: cfg.Model()}

	var (
		est skyfix.Estimate
		err error
	)
	switch {
	case *quat != "":
		q := parseQuat(*quat)
		est, err = fixer.LocateReading(body, skyfix.Reading{Quaternion: &q, Time: t}, t)
	case *euler:
		h := *heading
		est, err = fixer.LocateReading(body, skyfix.Reading{
			Euler:   &skyfix.Euler{Alpha: *alpha, Beta: *beta, Gamma: *gamma},
			Heading: &h,
			Time:    t,
		}, t)
	default:
		est, err = fixer.Locate(body, skyfix.AltAz{Altitude: *alt, Azimuth: *az}, t)
	}
	if err != nil {
		fail(err)
	}

	if *c.jsonOut {
		printJSON(est)
		return
	}
	printEstimate(est)
}

func parseQuat(s string) [4]float64 {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		log.Fatalf("invalid -quat %q: want x,y,z,w", s)
	}
	var q [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			log.Fatalf("invalid -quat component %q: %v", p, err)
		}
		q[i] = v
	}
	return q
}

// ---------------------
// predict
// ---------------------

type predictOutput struct {
	Body     skyfix.Body     `json:"body"`
	Time     time.Time       `json:"time"`
	Observer skyfix.Position `json:"observer"`
	Observed skyfix.AltAz    `json:"observed"`
}

func runPredict(args []string) {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	c := addCommon(fs)
	lat := fs.Float64("lat", 0, "observer latitude in degrees (north positive)")
	lon := fs.Float64("lon", 0, "observer longitude in degrees (east positive, west negative)")
	parseFlags(fs, args)

	if *lat == 0 && *lon == 0 {
		log.Println("warning: lat=0 lon=0 (Gulf of Guinea). Use -lat and -lon to set a real location.")
	}

	cfg := c.load()
	body, t := c.body(), c.when()
	observer := skyfix.NormalizePosition(skyfix.Position{Lat: *lat, Lon: *lon})

	aa, err := skyfix.Fixer{Lunar: cfg.Model()}.Predict(body, observer, t)
	if err != nil {
		fail(err)
	}

	if *c.jsonOut {
		printJSON(predictOutput{Body: body, Time: t, Observer: observer, Observed: aa})
		return
	}
	fmt.Printf("%s seen from %s at %s\n", title(body), skyfix.FormatPosition(observer), t.Format(time.RFC3339))
	fmt.Printf("  Altitude : %.4f°\n", aa.Altitude)
	fmt.Printf("  Azimuth  : %.4f°\n", aa.Azimuth)
}

// ---------------------
// subpoint
// ---------------------

type subPointOutput struct {
	Body     skyfix.Body     `json:"body"`
	Time     time.Time       `json:"time"`
	SubPoint skyfix.Position `json:"sub_point"`
}

func runSubPoint(args []string) {
	fs := flag.NewFlagSet("subpoint", flag.ExitOnError)
	c := addCommon(fs)
	parseFlags(fs, args)

	cfg := c.load()
	body, t := c.body(), c.when()

	sp, err := skyfix.Fixer{Lunar: cfg.Model()}.SubPoint(body, t)
	if err != nil {
		fail(err)
	}
	if *c.jsonOut {
		printJSON(subPointOutput{Body: body, Time: t, SubPoint: sp})
		return
	}
	fmt.Printf("%s sub-point at %s\n", title(body), t.Format(time.RFC3339))
	fmt.Printf("  %s  (%.4f, %.4f)\n", skyfix.FormatPosition(sp), sp.Lat, sp.Lon)
}

// ---------------------
// replay
// ---------------------

func runReplay(args []string) {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	c := addCommon(fs)
	file := fs.String("file", "", "recorded session, one JSON reading per line")
	hz := fs.Float64("hz", 0, "replay rate in readings per second (overrides config)")
	parseFlags(fs, args)

	if *file == "" {
		log.Fatalf("missing -file (recorded session)")
	}
	cfg := c.load()
	if *hz > 0 {
		cfg.Replay.Hz = *hz
	}
	body := c.body()
	logger := cfg.Logger()

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("open recording: %v", err)
	}
	readings, err := sensor.ReadRecording(f)
	f.Close()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if len(readings) == 0 {
		fail(skyfix.ErrMissingReading)
	}

	s := skyfix.NewSighter(skyfix.SighterOptions{
		Lunar:  cfg.Model(),
		MaxAge: cfg.MaxAge.Duration,
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ch := make(chan skyfix.Reading)
	errc := make(chan error, 1)
	go func() { errc <- sensor.Replay(ctx, readings, cfg.Replay.Hz, ch) }()
	if err := s.Run(ctx, ch); err != nil {
		log.Fatalf("replay interrupted: %v", err)
	}
	if err := <-errc; err != nil {
		log.Fatalf("replay: %v", err)
	}

	// Sight at the requested time, or when the last reading was taken.
	t := time.Now().UTC()
	if *c.timeS != "" {
		t = c.when()
	} else if _, at, ok := s.Latest(); ok {
		t = at
	}

	est, err := s.TakeSighting(ctx, body, t)
	if err != nil {
		fail(err)
	}
	if *c.jsonOut {
		printJSON(est)
		return
	}
	printEstimate(est)
}

// ---------------------
// serve
// ---------------------

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	c := addCommon(fs)
	addr := fs.String("addr", "", "listen address (overrides config)")
	parseFlags(fs, args)

	cfg := c.load()
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		log.Printf("listen: %v", err)
		return exitInternal
	}
	return serve(ctx, cfg, ln, prometheus.DefaultRegisterer)
}

// serve runs the feed on ln until ctx is done and returns the exit code.
// Tracing is shut down, flushing buffered spans, on every return path.
func serve(ctx context.Context, cfg config.Config, ln net.Listener, reg prometheus.Registerer) int {
	logger := cfg.Logger()

	shutdown, err := observability.InitTracing(ctx, cfg.Tracing, logger)
	if err != nil {
		log.Printf("init tracing: %v", err)
		ln.Close()
		return exitInternal
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, logger)

	metrics, err := observability.NewSightingCollector(reg)
	if err != nil {
		log.Printf("init metrics: %v", err)
		ln.Close()
		return exitInternal
	}

	s := skyfix.NewSighter(skyfix.SighterOptions{
		Lunar:   cfg.Model(),
		MaxAge:  cfg.MaxAge.Duration,
		Logger:  logger,
		Metrics: metrics,
		Tracer:  observability.Tracer(),
	})
	srv := feed.New(s, feed.Options{
		Logger:      logger,
		Metrics:     metrics.Handler(),
		MetricsPath: cfg.Server.MetricsPath,
	})

	if err := srv.Serve(ctx, ln); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("server: %v", err)
		return exitInternal
	}
	return 0
}

// ---------------------
// Shared helpers
// ---------------------

func title(b skyfix.Body) string {
	return map[skyfix.Body]string{
		skyfix.Sun:  "Sun",
		skyfix.Moon: "Moon",
	}[b]
}

// fail reports a sighting error and exits: 2 for errors a retry could fix,
// 3 for anything else.
func fail(err error) {
	switch {
	case errors.Is(err, skyfix.ErrMissingReading):
		log.Printf("no reading: %v (aim at the body and try again)", err)
		os.Exit(exitNoFix)
	case errors.Is(err, skyfix.ErrNoSolution), errors.Is(err, skyfix.ErrBelowHorizon):
		log.Printf("no solution: %v (check your sighting)", err)
		os.Exit(exitNoFix)
	case errors.Is(err, skyfix.ErrUnknownBody):
		log.Printf("%v", err)
		os.Exit(exitUsage)
	default:
		log.Printf("error: %v", err)
		os.Exit(exitInternal)
	}
}

func printEstimate(est skyfix.Estimate) {
	fmt.Printf("%s sighting at %s\n", title(est.Body), est.Time.Format(time.RFC3339))
	fmt.Printf("  Observed   : alt %.4f°  az %.4f°\n", est.Observed.Altitude, est.Observed.Azimuth)
	fmt.Printf("  Corrected  : alt %.4f°  (refraction %.4f°, parallax %.4f°)\n", est.Altitude, est.Refraction, est.Parallax)
	fmt.Printf("  Sub-point  : %s  (%.4f, %.4f)\n", skyfix.FormatPosition(est.SubPoint), est.SubPoint.Lat, est.SubPoint.Lon)
	fmt.Printf("  Position   : %s  (%.4f, %.4f)\n", skyfix.FormatPosition(est.Here), est.Here.Lat, est.Here.Lon)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("failed to encode JSON: %v", err)
	}
}
