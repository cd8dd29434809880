// Package processtest provides child processes for tests that need real
// services: the test binary re-executes itself in helper mode.
//
// A test package enables it from TestMain:
//
//	func TestMain(m *testing.M) {
//	    processtest.Main()
//	    os.Exit(m.Run())
//	}
//
// and launches helpers with Command and Env.
package processtest

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

// EnvVar switches the test binary into helper mode.
const EnvVar = "CONDUCTOR_HELPER_PROCESS"

// Helper modes.
const (
	// ModeServe serves 200 on every path of $PORT and exits 0 on SIGTERM.
	// An optional argument delays the listener, e.g. "500ms".
	ModeServe = "serve"
	// ModeUnhealthy serves 500 on every path of $PORT.
	ModeUnhealthy = "unhealthy"
	// ModeToggle serves 200 unless the file named by its argument exists,
	// then 503.
	ModeToggle = "toggle"
	// ModeStubborn serves 200 and ignores SIGTERM.
	ModeStubborn = "stubborn"
	// ModeSleep blocks until SIGTERM.
	ModeSleep = "sleep"
	// ModeExit writes its second argument to stderr and exits with the code
	// given as first argument.
	ModeExit = "exit"
	// ModeEcho prints every argument on its own line and exits 0.
	ModeEcho = "echo"
)

// Command returns the argv that runs mode in a helper process.
func Command(mode string, args ...string) []string {
	return append([]string{os.Args[0], mode}, args...)
}

// Env returns the environment entries that enable helper mode, as a map for
// config.ServiceSpec.Env.
func Env() map[string]string {
	return map[string]string{EnvVar: "1"}
}

// Environ returns the environment of the current process plus helper mode.
func Environ() []string {
	return append(os.Environ(), EnvVar+"=1")
}

// Main runs the helper and exits when the process was started in helper
// mode. Otherwise it returns immediately.
func Main() {
	if os.Getenv(EnvVar) != "1" {
		return
	}
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "processtest: missing mode")
		os.Exit(2)
	}
	os.Exit(run(os.Args[1], os.Args[2:]))
}

func run(mode string, args []string) int {
	switch mode {
	case ModeServe:
		if len(args) > 0 {
			if d, err := time.ParseDuration(args[0]); err == nil {
				time.Sleep(d)
			}
		}
		return serve(func() int { return http.StatusOK }, true)

	case ModeUnhealthy:
		return serve(func() int { return http.StatusInternalServerError }, true)

	case ModeToggle:
		flag := ""
		if len(args) > 0 {
			flag = args[0]
		}
		return serve(func() int {
			if _, err := os.Stat(flag); err == nil {
				return http.StatusServiceUnavailable
			}
			return http.StatusOK
		}, true)

	case ModeStubborn:
		return serve(func() int { return http.StatusOK }, false)

	case ModeSleep:
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT)
		fmt.Println("sleeping")
		<-sig
		return 0

	case ModeExit:
		code := 1
		if len(args) > 0 {
			if c, err := strconv.Atoi(args[0]); err == nil {
				code = c
			}
		}
		if len(args) > 1 {
			fmt.Fprintln(os.Stderr, args[1])
		}
		return code

	case ModeEcho:
		for _, a := range args {
			fmt.Println(a)
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "processtest: unknown mode %q\n", mode)
		return 2
	}
}

func serve(status func() int, honourTerm bool) int {
	sig := make(chan os.Signal, 1)
	if honourTerm {
		signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT)
	} else {
		signal.Ignore(syscall.SIGTERM)
	}

	port := os.Getenv("PORT")
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen: %v\n", err)
		return 1
	}
	fmt.Printf("listening on %s\n", ln.Addr())

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status())
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go srv.Serve(ln)

	<-sig
	srv.Close()
	return 0
}
