package e2e

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

var (
	appURL     string
	dbPath     string
	bankctlBin string
)

func TestMain(m *testing.M) {
	os.Exit(runTestMain(m))
}

// build compiles the main package in cmd/<name> into the temp dir.
func build(name string) (string, error) {
	out := filepath.Join(os.TempDir(), name+"-test")
	pkg := "../cmd/" + name
	// Running from the module root instead of e2e/
	if _, err := os.Stat(pkg); os.IsNotExist(err) {
		pkg = "./cmd/" + name
	}
	cmd := exec.Command("go", "build", "-o", out, pkg)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("build %s: %w\n%s", name, err, output)
	}
	return out, nil
}

func runTestMain(m *testing.M) int {
	serverBin, err := build("server")
	if err != nil {
		fmt.Println(err)
		return 1
	}
	defer os.Remove(serverBin)

	bankctlBin, err = build("bankctl")
	if err != nil {
		fmt.Println(err)
		return 1
	}
	defer os.Remove(bankctlBin)

	dbPath = filepath.Join(os.TempDir(), "test_bankly.db")
	os.Remove(dbPath)
	defer os.Remove(dbPath)

	port := "8081"
	appURL = "http://localhost:" + port

	serverCmd := exec.Command(serverBin)
	serverCmd.Env = append(os.Environ(),
		"PORT="+port,
		"DB_PATH="+dbPath,
		"DATABASE_URL=",
		"ADMIN_USER=testuser",
		"ADMIN_PASSWORD=testpass123",
		"LOG_LEVEL=warn",
	)
	serverCmd.Dir = ".." // Run from project root so it finds web/templates
	serverCmd.Stdout = os.Stdout
	serverCmd.Stderr = os.Stderr

	if err := serverCmd.Start(); err != nil {
		fmt.Printf("Failed to start server: %v\n", err)
		return 1
	}

	ready := false
	for range 50 {
		time.Sleep(100 * time.Millisecond)
		resp, err := http.Get(appURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				ready = true
				break
			}
		}
	}

	if !ready {
		fmt.Println("Server failed to start or is not reachable")
		serverCmd.Process.Kill()
		return 1
	}

	code := m.Run()

	if err := serverCmd.Process.Kill(); err != nil {
		fmt.Printf("Failed to kill server: %v\n", err)
	}

	return code
}

// setBalance funds an account out of band, the way an operator would.
func setBalance(accountID int64, balance string) error {
	cmd := exec.Command(bankctlBin, "setbalance",
		"-account", fmt.Sprint(accountID), "-balance", balance, "-db", dbPath)
	cmd.Env = append(os.Environ(), "DATABASE_URL=")
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("bankctl setbalance: %w\n%s", err, output)
	}
	return nil
}
