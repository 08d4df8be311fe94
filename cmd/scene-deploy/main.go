// Command scene-deploy publishes scene deployments to a content server
// and queries its state.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"scene2d.dev/catalyst/authchain"
	"scene2d.dev/catalyst/client"
	"scene2d.dev/catalyst/deploy"
	"scene2d.dev/catalyst/entity"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "status":
		return cmdStatus(args[1:], out, errOut)
	case "snapshot":
		return cmdSnapshot(args[1:], out, errOut)
	case "exists":
		return cmdExists(args[1:], out, errOut)
	case "download":
		return cmdDownload(args[1:], out, errOut)
	case "deploy":
		return cmdDeploy(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "scene-deploy: publish and inspect content-server scene deployments")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  scene-deploy status --config <file>")
	fmt.Fprintln(w, "  scene-deploy snapshot --config <file> [--type scene|profile|wearable|emote]")
	fmt.Fprintln(w, "  scene-deploy exists --config <file> <cid> [<cid> ...]")
	fmt.Fprintln(w, "  scene-deploy download --config <file> <cid> <dest>")
	fmt.Fprintln(w, "  scene-deploy deploy --config <file> --dir <scene dir> --pointers <x,y[;x,y...]> --auth <chain.json>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - the config file is JSON: {\"server\": ..., \"cache_dir\": ..., \"shared_cache\": ...}")
	fmt.Fprintln(w, "  - chain.json is the pre-signed auth chain: [{\"type\":...,\"payload\":...,\"signature\":...}, ...]")
}

func cmdStatus(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	_ = fs.Parse(args)

	cl, closeFn, code := openClient(*configPath, errOut)
	if cl == nil {
		return code
	}
	defer closeFn()

	st, err := cl.Status(context.Background())
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "name: %s\nversion: %s\ncurrentTime: %d\n", st.Name, st.Version, st.CurrentTime)
	return 0
}

func cmdSnapshot(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	kind := fs.String("type", "", "entity type to enumerate (omit to print index refs)")
	_ = fs.Parse(args)

	cl, closeFn, code := openClient(*configPath, errOut)
	if cl == nil {
		return code
	}
	defer closeFn()

	ctx := context.Background()
	snap, err := cl.Snapshot(ctx)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if *kind == "" {
		fmt.Fprintf(out, "scene: %s\nprofile: %s\nwearable: %s\nemote: %s\n",
			snap.Entities.Scene.Hash, snap.Entities.Profile.Hash,
			snap.Entities.Wearable.Hash, snap.Entities.Emote.Hash)
		return 0
	}

	entries, err := client.SnapshotEntities[json.RawMessage](ctx, cl, entity.EntityType(*kind), snap)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	for _, e := range entries {
		fmt.Fprintln(out, e.EntityID)
	}
	fmt.Fprintf(errOut, "%d entities\n", len(entries))
	return 0
}

func cmdExists(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("exists", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		fmt.Fprintln(errOut, "exists: at least one cid is required")
		return 2
	}

	cl, closeFn, code := openClient(*configPath, errOut)
	if cl == nil {
		return code
	}
	defer closeFn()

	ids := make([]entity.ContentId, 0, fs.NArg())
	for _, a := range fs.Args() {
		ids = append(ids, entity.ContentId(a))
	}
	statuses, err := cl.ContentFilesExist(context.Background(), ids)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	missing := 0
	for _, st := range statuses {
		fmt.Fprintf(out, "%s\t%t\n", st.ID, st.Available)
		if !st.Available {
			missing++
		}
	}
	if missing > 0 {
		return 1
	}
	return 0
}

func cmdDownload(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	_ = fs.Parse(args)
	if fs.NArg() != 2 {
		fmt.Fprintln(errOut, "download: expected <cid> <dest>")
		return 2
	}

	cl, closeFn, code := openClient(*configPath, errOut)
	if cl == nil {
		return code
	}
	defer closeFn()

	id := entity.ContentId(fs.Arg(0))
	dest := fs.Arg(1)
	if err := cl.Download(context.Background(), id, dest); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "%s -> %s\n", id, dest)
	return 0
}

func cmdDeploy(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("deploy", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	dir := fs.String("dir", "", "scene directory to publish")
	pointersArg := fs.String("pointers", "", "semicolon-separated parcel list, e.g. \"0,0;0,1\"")
	authPath := fs.String("auth", "", "pre-signed auth chain JSON file")
	_ = fs.Parse(args)

	if *dir == "" || *pointersArg == "" || *authPath == "" {
		fmt.Fprintln(errOut, "deploy: --dir, --pointers and --auth are required")
		return 2
	}

	parcels, err := parseParcels(*pointersArg)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	chain, err := loadChain(*authPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	files, err := readSceneDir(*dir)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	cl, closeFn, code := openClient(*configPath, errOut)
	if cl == nil {
		return code
	}
	defer closeFn()

	ctx := context.Background()

	// The currently active manifest (if any) seeds carried-over content
	// and metadata.
	var previous *entity.Entity
	active, err := cl.SceneEntitiesForParcels(ctx, parcels)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if len(active) > 0 {
		previous = &active[0]
	}

	deployData, entityID, err := deploy.BuildEntityScene(entity.PointerStrings(parcels), files, previous, deploy.BuildOptions{})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	resp, err := deploy.Deploy(ctx, cl, entityID, deployData, chain)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "deployed %s (accepted at %d)\n", entityID, resp.CreationTimestamp)
	return 0
}

func openClient(configPath string, errOut io.Writer) (*client.Client, func() error, int) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return nil, nil, 2
	}
	cl, closeFn, err := cfg.newClient()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return nil, nil, 1
	}
	return cl, closeFn, 0
}

func parseParcels(arg string) ([]entity.Parcel, error) {
	var parcels []entity.Parcel
	for _, piece := range strings.Split(arg, ";") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		p, err := entity.ParseParcel(piece)
		if err != nil {
			return nil, err
		}
		parcels = append(parcels, p)
	}
	if len(parcels) == 0 {
		return nil, fmt.Errorf("deploy: no parcels in %q", arg)
	}
	return parcels, nil
}

func loadChain(path string) (authchain.Chain, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var chain authchain.Chain
	if err := json.Unmarshal(b, &chain); err != nil {
		return nil, fmt.Errorf("parsing auth chain %s: %w", path, err)
	}
	return chain, nil
}

// readSceneDir loads every regular file under root, keyed by its
// slash-separated path relative to root.
func readSceneDir(root string) (map[string][]byte, error) {
	files := make(map[string][]byte)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
