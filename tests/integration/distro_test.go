//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const suiteTimeout = 15 * time.Minute

func TestMain(m *testing.M) {
	if err := exec.Command("docker", "info").Run(); err != nil {
		fmt.Println("Docker not available; skipping integration tests:", err)
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// suiteScript runs inside each container. Every stage prints a marker so a
// failure can be located in the logs.
const suiteScript = `set -e
cp -r /src/. /workspace/
cd /workspace
GOINSTALLED=$(go version | awk '{print $3}' | sed 's/go//')
go mod edit -go="$GOINSTALLED" -toolchain=none

echo "== unit"
go test -count=1 ./...

echo "== x11"
Xvfb :99 -screen 0 1280x720x24 +extension XTEST +extension RANDR &
XVFB_PID=$!
trap 'kill $XVFB_PID 2>/dev/null || true' EXIT
sleep 1
export DISPLAY=:99
go test -v -count=1 -tags x11test ./internal/wm/...

echo "== smoke"
go build -o /tmp/gowm .
/tmp/gowm --log-level debug 2>/tmp/gowm.log &
WM_PID=$!
sleep 1
kill -TERM $WM_PID
wait $WM_PID
cat /tmp/gowm.log
echo "== done"
`

// dockerfilesDir returns tests/integration/dockerfiles next to this file.
func dockerfilesDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot locate test source")
	}
	return filepath.Join(filepath.Dir(file), "dockerfiles")
}

// distros lists every image under dir that carries a Dockerfile.
func distros(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, e.Name(), "Dockerfile")); err == nil {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		t.Fatalf("no Dockerfiles under %s", dir)
	}
	return names
}

// runSuite builds the image in dockerfileDir, runs suiteScript against a
// read-only mount of root and returns the container logs and exit code.
func runSuite(ctx context.Context, t *testing.T, dockerfileDir, root string) (string, int) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		FromDockerfile: testcontainers.FromDockerfile{
			Context:    dockerfileDir,
			Dockerfile: "Dockerfile",
			KeepImage:  true,
		},
		Mounts: testcontainers.ContainerMounts{
			{
				Source:   testcontainers.GenericBindMountSource{HostPath: root},
				Target:   "/src",
				ReadOnly: true,
			},
			{
				Source: testcontainers.GenericVolumeMountSource{Name: "gowm-gomodcache"},
				Target: "/root/go/pkg/mod",
			},
		},
		Cmd:        []string{"/bin/sh", "-c", suiteScript},
		WaitingFor: wait.ForExit().WithExitTimeout(suiteTimeout),
	}

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting container: %v", err)
	}

	var logs string
	if rc, err := ctr.Logs(ctx); err == nil {
		raw, _ := io.ReadAll(rc)
		rc.Close()
		logs = string(raw)
	}
	state, err := ctr.State(ctx)
	if err != nil {
		t.Fatalf("container state: %v\nlogs:\n%s", err, logs)
	}
	return logs, state.ExitCode
}

func TestDistroSuite(t *testing.T) {
	dir := dockerfilesDir(t)
	root := filepath.Join(dir, "..", "..", "..")

	for _, name := range distros(t, dir) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithTimeout(context.Background(), suiteTimeout)
			defer cancel()

			logs, code := runSuite(ctx, t, filepath.Join(dir, name), root)
			t.Logf("container logs:\n%s", logs)
			if code != 0 {
				t.Fatalf("container exited with code %d", code)
			}
			for _, want := range []string{"== done", `msg="window manager running"`, `msg="shutting down"`} {
				if !strings.Contains(logs, want) {
					t.Errorf("logs missing %q", want)
				}
			}
		})
	}
}
