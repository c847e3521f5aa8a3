package test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/openvest/vestd/core/audit"
	"github.com/openvest/vestd/core/claim"
	"github.com/openvest/vestd/core/registry"
	"github.com/openvest/vestd/core/store"
	"github.com/openvest/vestd/core/vesting"
	"github.com/openvest/vestd/infra/events"
	"github.com/openvest/vestd/infra/transfer"
	"github.com/openvest/vestd/internal/eventbus"
	"github.com/openvest/vestd/internal/keymutex"
)

type testIDs struct{}

func (testIDs) IsAdministrator(id string) bool               { return id == "admin" }
func (testIDs) IsAuthorizedClaimant(caller, ben string) bool { return caller == ben }

func waitForMQTTReady(broker string, timeout time.Duration) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		lastErr = token.Error()
		time.Sleep(100 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for broker")
	}
	return lastErr
}

func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
`
	dir := t.TempDir()
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		t.Fatalf("write conf: %v", err)
	}

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{
			{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0644,
			},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container start: %v", err)
	}
	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())
	if err := waitForMQTTReady(broker, 5*time.Second); err != nil {
		t.Logf("mosquitto not ready at %s: %v", broker, err)
		t.Skip("Mosquitto not ready after retries")
	}
	return cont, broker
}

func TestAuditRecordsReachMQTTContainer(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()

	cont, broker := startMosquitto(ctx, t)
	defer func() { _ = cont.Terminate(ctx) }()

	received := make(chan audit.Record, 8)
	subOpts := paho.NewClientOptions().AddBroker(broker).SetClientID("audit-sub")
	subCli := paho.NewClient(subOpts)
	if token := subCli.Connect(); token.Wait() && token.Error() != nil {
		t.Skipf("subscriber connect: %v", token.Error())
	}
	defer subCli.Disconnect(100)
	if token := subCli.Subscribe("vestd/audit/#", 1, func(_ paho.Client, m paho.Message) {
		var rec audit.Record
		if err := json.Unmarshal(m.Payload(), &rec); err == nil {
			received <- rec
		}
	}); token.Wait() && token.Error() != nil {
		t.Fatalf("subscribe: %v", token.Error())
	}

	bus := eventbus.New()
	defer bus.Close()
	pub, err := events.NewPublisher(events.Config{
		Enabled:  true,
		Broker:   broker,
		ClientID: "vestd-test",
		QoS:      1,
	})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	defer pub.Close()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go pub.Run(runCtx, bus)

	st := store.NewMemoryStore()
	locks := keymutex.New()
	clock := vesting.ClockFunc(func() uint64 { return 50 })
	mock := transfer.NewMock()

	reg, err := registry.New(st, testIDs{}, locks, bus, nil, clock, nil, "ASTRO", 0)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	eng, err := claim.New(st, testIDs{}, mock, locks, bus, nil, clock, nil, "ASTRO")
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	schedules := []vesting.Schedule{{Points: []vesting.ReleasePoint{
		{Time: 0, Amount: 0},
		{Time: 100, Amount: 1000},
	}}}
	if _, err := reg.Register(ctx, "admin", "alice", schedules); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := eng.Claim(ctx, "alice", "alice"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	want := map[audit.Kind]bool{
		audit.KindRegistration: false,
		audit.KindClaim:        false,
	}
	deadline := time.After(10 * time.Second)
	for {
		select {
		case rec := <-received:
			if _, ok := want[rec.Kind]; ok {
				want[rec.Kind] = true
			}
			if rec.Kind == audit.KindClaim {
				if rec.Claim == nil || rec.Claim.Amount != 500 {
					t.Fatalf("unexpected claim record: %+v", rec)
				}
			}
			if want[audit.KindRegistration] && want[audit.KindClaim] {
				return
			}
		case <-deadline:
			t.Fatalf("missing audit records, seen: %+v", want)
		}
	}
}
