package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/akmonengine/ligament"
	"github.com/akmonengine/ligament/config"
	"github.com/akmonengine/ligament/constraint"
	"github.com/akmonengine/ligament/stream"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configFile string
	steps      int
	workers    int
	addr       string
	outFile    string
	showJoints bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ligament",
		Short: "articulated rigid body solver",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "island solver workers, 0 keeps the config value")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "step the scene of the config file and print the final state",
		RunE:  runScene,
	}
	runCmd.Flags().IntVar(&steps, "steps", 0, "fixed steps to run, 0 keeps scene.steps")
	runCmd.Flags().BoolVar(&showJoints, "joints", false, "print the joint topology and forces")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "step the scene in real time and stream snapshots over websocket",
		RunE:  serveScene,
	}
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	defaultsCmd := &cobra.Command{
		Use:   "defaults",
		Short: "write the default configuration",
		RunE:  writeDefaults,
	}
	defaultsCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file, stdout when empty")

	kindsCmd := &cobra.Command{
		Use:   "kinds",
		Short: "list the registered joint kinds",
		Run: func(cmd *cobra.Command, args []string) {
			for _, kind := range constraint.Kinds() {
				fmt.Println(kind)
			}
		},
	}

	rootCmd.AddCommand(runCmd, serveCmd, defaultsCmd, kindsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadWorld() (*ligament.World, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if workers > 0 {
		cfg.Solver.Workers = workers
	}

	world := ligament.NewWorld(*cfg)
	if _, err := ligament.LoadScene(world, cfg.Scene); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	return world, nil
}

func runScene(cmd *cobra.Command, args []string) error {
	world, err := loadWorld()
	if err != nil {
		return err
	}

	limitHits := 0
	world.Events.Subscribe(ligament.LIMIT_HIT, func(event ligament.Event) {
		limitHits++
	})

	n := steps
	if n <= 0 {
		n = world.Config.Scene.Steps
	}
	dt := world.Config.Timing.FixedStep

	start := time.Now()
	var stepErrors int
	for i := 0; i < n; i++ {
		if err := world.Step(dt); err != nil {
			stepErrors++
			if errors.Is(err, ligament.ErrUnsupported) && stepErrors == 1 {
				fmt.Fprintf(os.Stderr, "inverse dynamics: %v\n", err)
			}
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("%d steps of %.4fs in %v, %d limit hits\n\n", n, dt, elapsed, limitHits)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPOSITION\tVELOCITY\tOMEGA\tSLEEPING")
	for _, body := range world.Bodies() {
		if body.IsStatic() {
			continue
		}
		p, v, o := body.Transform.Position, body.Velocity, body.AngularVelocity
		fmt.Fprintf(w, "%d\t(%.3f, %.3f, %.3f)\t(%.3f, %.3f, %.3f)\t(%.3f, %.3f, %.3f)\t%v\n",
			body.ID, p[0], p[1], p[2], v[0], v[1], v[2], o[0], o[1], o[2], body.IsSleeping)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if showJoints {
		fmt.Println()
		return printTopology(world)
	}
	return nil
}

func printTopology(world *ligament.World) error {
	byID := make(map[uint32]constraint.Joint)
	for _, joint := range world.Joints() {
		byID[joint.Base().ID()] = joint
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tBODY0\tBODY1\tISLAND\tLOOP\tROWS\tFORCE0")
	for _, info := range world.Topology() {
		base := byID[info.ID].Base()
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%v\t%d\t%.3f\n",
			info.ID, info.Kind, info.Body0, info.Body1, info.Island, info.Loop, base.RowCount(), base.Force(0))
	}
	return w.Flush()
}

func serveScene(cmd *cobra.Command, args []string) error {
	world, err := loadWorld()
	if err != nil {
		return err
	}

	server := stream.NewServer()
	server.Logger = world.Logger
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.HandleWS)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		world.Logger.Printf("serving snapshots on ws://%s/ws", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			world.Logger.Printf("http: %v", err)
			stop()
		}
	}()

	dt := world.Config.Timing.FixedStep
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	last := time.Now()
	simulated := 0.0
	for {
		select {
		case <-ctx.Done():
			server.Close()
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdown)
		case now := <-ticker.C:
			elapsed := now.Sub(last).Seconds()
			last = now
			before := world.StepCount()
			if err := world.AdvanceTime(elapsed); err != nil {
				world.Logger.Printf("step: %v", err)
			}
			after := world.StepCount()
			if after == before {
				continue
			}
			simulated += float64(after-before) * dt
			server.Broadcast(stream.Capture(after, simulated, world.Bodies()))
		}
	}
}

func writeDefaults(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if outFile != "" {
		return config.Save(outFile, cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
