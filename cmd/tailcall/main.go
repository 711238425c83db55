// Command tailcall runs the GraphQL orchestration gateway: it loads a root
// config source (and its transitive @link graph), compiles it into a
// blueprint, wires the upstream adapters the blueprint's linked resources
// call for, and serves the result over HTTP (spec.md §3 "cmd/tailcall").
//
// Grounded on _examples/hanpama-protograph/cmd/protograph/main.go's
// "load project -> build schema/runtime -> construct server -> listen"
// pipeline shape, replacing its flag-package subcommand set with
// spf13/cobra + spf13/viper (both already part of the teacher's stack; the
// rest of the retrieval pack's gateway-shaped repos — e.g. the
// n9te9-go-graphql-federation-gateway and nautilus-gateway manifests —
// consistently reach for cobra/viper for this exact "serve" entrypoint
// shape, so this file follows the corpus rather than the teacher's
// bespoke flag parsing).
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/tailcall-gateway/engine/internal/adapter/graphqlup"
	"github.com/tailcall-gateway/engine/internal/adapter/grpcup"
	"github.com/tailcall-gateway/engine/internal/adapter/httpup"
	"github.com/tailcall-gateway/engine/internal/app"
	"github.com/tailcall-gateway/engine/internal/blueprint"
	"github.com/tailcall-gateway/engine/internal/config"
	"github.com/tailcall-gateway/engine/internal/eventbus"
	"github.com/tailcall-gateway/engine/internal/evaluator"
	"github.com/tailcall-gateway/engine/internal/otel"
	"github.com/tailcall-gateway/engine/internal/script"
	"github.com/tailcall-gateway/engine/internal/source"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   "tailcall",
		Short: "GraphQL orchestration gateway",
	}
	root.AddCommand(newServeCmd(v), newCompileCmd(v))
	return root
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <config-ref>",
		Short: "Run the HTTP GraphQL gateway backed by a compiled blueprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindServeFlags(cmd, v)
			return runServe(cmd.Context(), args[0], v)
		},
	}
	fs := cmd.Flags()
	fs.String("addr", ":8080", "HTTP listen address")
	fs.Bool("pretty", false, "Pretty-print JSON responses")
	fs.Duration("timeout", 10*time.Second, "Per-request timeout")
	fs.Bool("graphiql", true, "Enable the GraphiQL IDE")
	fs.Bool("batch", true, "Allow batched (JSON array) requests")
	fs.Int("cache-size", 1024, "Shared response cache entry limit")
	fs.Int64("max-body-bytes", 0, "Request body size limit, 0 disables it")
	fs.StringSlice("cors-origin", nil, "Allowed CORS origin, repeatable; '*' allows all")
	fs.StringToString("grpc-backend", nil, "Map a gRPC service name to a host:port target, repeatable")
	fs.String("otel-endpoint", "", "OTLP collector endpoint")
	fs.String("otel-service", "tailcall", "OpenTelemetry service name")
	return cmd
}

func bindServeFlags(cmd *cobra.Command, v *viper.Viper) {
	_ = v.BindPFlags(cmd.Flags())
	v.SetEnvPrefix("tailcall")
	v.AutomaticEnv()
}

func runServe(ctx context.Context, rootRef string, v *viper.Viper) error {
	fetcher := source.NewFetcher(".")
	graph, err := source.Load(ctx, fetcher, rootRef)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	bp, err := blueprint.Compile(graph.Config)
	if err != nil {
		return fmt.Errorf("compile blueprint: %w", err)
	}

	adapters, err := buildAdapters(graph, v.GetStringMapString("grpc-backend"))
	if err != nil {
		return fmt.Errorf("build adapters: %w", err)
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(v.GetString("otel-endpoint"), v.GetString("otel-service"))
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	opts := []app.Option{
		app.WithPretty(v.GetBool("pretty")),
		app.WithTimeout(v.GetDuration("timeout")),
		app.WithGraphiQL(v.GetBool("graphiql")),
		app.WithBatchRequests(v.GetBool("batch")),
		app.WithCacheSize(v.GetInt("cache-size")),
	}
	if n := v.GetInt64("max-body-bytes"); n > 0 {
		opts = append(opts, app.WithMaxBodyBytes(n))
	}
	if origins := v.GetStringSlice("cors-origin"); len(origins) > 0 {
		opts = append(opts, app.WithCORS(origins...))
	}

	h := app.New(bp, adapters, opts...)

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)

	addr := v.GetString("addr")
	log.Printf("tailcall listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}

// buildAdapters wires one Caller per protocol the blueprint's IO nodes may
// dispatch to: httpup/graphqlup need no linked resources, grpcup needs the
// graph's linked Protobuf descriptor sets plus a service->target map built
// from backends (falling back to any linked Grpc resources), and script
// needs the graph's linked Script sources. An adapter whose resources are
// absent from the graph is still constructed (an empty Registry/Worker);
// the blueprint compiler already rejects resolvers whose link doesn't
// exist, so an empty adapter is simply never called.
func buildAdapters(graph *source.Graph, backends map[string]string) (evaluator.Adapters, error) {
	var descriptorSets [][]byte
	grpcTargets := map[string]string{}
	scriptSources := map[string]string{}

	for _, res := range graph.Resources {
		switch res.Link.Kind {
		case config.LinkProtobuf:
			descriptorSets = append(descriptorSets, res.Content)
		case config.LinkGrpc:
			grpcTargets[res.Link.ID] = res.Link.Source
		case config.LinkScript:
			scriptSources[res.Link.ID] = string(res.Content)
		}
	}
	for svc, target := range backends {
		grpcTargets[svc] = target
	}

	reg, err := mergeProtobufDescriptors(descriptorSets)
	if err != nil {
		return evaluator.Adapters{}, err
	}
	provider := grpcup.NewStaticEndpoints(grpcTargets)
	transport := grpcup.NewTransport(provider)

	return evaluator.Adapters{
		HTTP:    httpup.NewAdapter(),
		GraphQL: graphqlup.NewAdapter(),
		GRPC:    grpcup.NewAdapter(reg, transport),
		JS:      script.NewWorker(scriptSources),
	}, nil
}

// mergeProtobufDescriptors concatenates every linked Protobuf resource's
// FileDescriptorProto entries into a single set before handing it to
// grpcup.NewRegistry, which only accepts one descriptorpb.FileDescriptorSet.
func mergeProtobufDescriptors(sets [][]byte) (*grpcup.Registry, error) {
	merged := &descriptorpb.FileDescriptorSet{}
	seen := map[string]bool{}
	for _, raw := range sets {
		var set descriptorpb.FileDescriptorSet
		if err := proto.Unmarshal(raw, &set); err != nil {
			return nil, fmt.Errorf("parsing linked Protobuf descriptor set: %w", err)
		}
		for _, f := range set.File {
			if seen[f.GetName()] {
				continue
			}
			seen[f.GetName()] = true
			merged.File = append(merged.File, f)
		}
	}
	raw, err := proto.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("remarshaling merged descriptor set: %w", err)
	}
	return grpcup.NewRegistry(raw)
}

func newCompileCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <config-ref>",
		Short: "Load and validate a config source, printing its type and link counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), args[0])
		},
	}
	return cmd
}

func runCompile(ctx context.Context, rootRef string) error {
	fetcher := source.NewFetcher(".")
	graph, err := source.Load(ctx, fetcher, rootRef)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if _, err := blueprint.Compile(graph.Config); err != nil {
		return fmt.Errorf("compile blueprint: %w", err)
	}
	fmt.Fprintln(os.Stdout, strings.TrimSpace(fmt.Sprintf("config %q is valid: %d type(s), %d link(s)",
		rootRef, len(graph.Config.Types), len(graph.Config.Links))))
	return nil
}
