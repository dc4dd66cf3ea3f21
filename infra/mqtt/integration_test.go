package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/lazyload/core/events"
)

func startMosquitto(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

// TestIntegration routes a navigation message through a real Mosquitto broker
// and reads back a published loading event.
func TestIntegration(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	broker := startMosquitto(t)

	routes := make(chan string, 1)
	var cli *PahoClient
	var err error
	for i := 0; i < 5; i++ {
		cli, err = NewPahoClient(Config{Broker: broker, ClientID: "loader"}, WithRouteHandler(func(r string) { routes <- r }))
		if err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer cli.Disconnect()

	peer := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("peer"))
	if token := peer.Connect(); token.Wait() && token.Error() != nil {
		t.Fatalf("peer connect: %v", token.Error())
	}
	defer peer.Disconnect(100)

	got := make(chan events.Event, 1)
	token := peer.Subscribe(DefaultEventsTopic+"/#", 0, func(_ paho.Client, m paho.Message) {
		var ev events.Event
		if err := json.Unmarshal(m.Payload(), &ev); err == nil {
			got <- ev
		}
	})
	if token.Wait() && token.Error() != nil {
		t.Fatalf("subscribe: %v", token.Error())
	}

	// let the loader's route subscription settle
	time.Sleep(300 * time.Millisecond)
	if token := peer.Publish(DefaultRouteTopic, 0, false, `{"route":"dashboard"}`); token.Wait() && token.Error() != nil {
		t.Fatalf("publish route: %v", token.Error())
	}
	select {
	case r := <-routes:
		if r != "dashboard" {
			t.Fatalf("expected dashboard got %s", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("route not received")
	}

	if err := cli.PublishEvent(events.Event{Kind: events.Loaded, Feature: "charts", Time: time.Now()}); err != nil {
		t.Fatalf("publish event: %v", err)
	}
	select {
	case ev := <-got:
		if ev.Kind != events.Loaded || ev.Feature != "charts" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event not received")
	}
}
