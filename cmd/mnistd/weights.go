package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mnistd/internal/blobstore"
	"mnistd/internal/common/fsutil"
	"mnistd/internal/config"
	"mnistd/internal/model"
)

func newWeightsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{Use: "weights", Short: "Create, inspect and upload weight blobs", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("weights requires a subcommand: init|inspect|upload")
	}}
	cmd.AddCommand(newWeightsInitCmd(o), newWeightsInspectCmd(o), newWeightsUploadCmd(o))
	return cmd
}

func newWeightsInitCmd(o *options) *cobra.Command {
	var (
		precision string
		seed      int64
		hidden    []int
		out       string
		force     bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a randomly initialised, correctly shaped weight blob",
		Long: "Builds an untrained network (784 -> hidden... -> 10) and stores it under the\n" +
			"configured weights key, or writes it to --out. Useful for smoke tests.",
		Example: "  mnistd weights init --store fs --store-path ./weights\n  mnistd weights init --out ./mnist.bin --hidden 256,64",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			net, err := model.NewRandom(model.Precision(precision), seed, hidden...)
			if err != nil {
				return err
			}
			blob, err := model.Encode(net)
			if err != nil {
				return err
			}
			if out != "" {
				return writeBlobFile(cmd.OutOrStdout(), out, blob, force)
			}
			cfg, err := o.resolveConfig(cmd.Flags(), os.Getenv)
			if err != nil {
				return err
			}
			return putBlob(cmd.Context(), cmd.OutOrStdout(), cfg, blob, force)
		},
	}
	f := cmd.Flags()
	f.StringVar(&precision, "precision", string(model.PrecisionFloat32), "Weight precision: float32|float64")
	f.Int64Var(&seed, "seed", 1, "Random seed")
	f.IntSliceVar(&hidden, "hidden", []int{128}, "Hidden layer widths")
	f.StringVar(&out, "out", "", "Write the blob to this file instead of the store")
	f.BoolVar(&force, "force", false, "Overwrite an existing blob")
	return cmd
}

func newWeightsInspectCmd(o *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Describe a weight blob from the store or a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				blob []byte
				src  string
				err  error
			)
			if file != "" {
				path, perr := fsutil.ExpandHome(file)
				if perr != nil {
					return perr
				}
				blob, err = os.ReadFile(path)
				src = path
			} else {
				cfg, cerr := o.resolveConfig(cmd.Flags(), os.Getenv)
				if cerr != nil {
					return cerr
				}
				blob, err = getBlob(cmd.Context(), cfg)
				src = cfg.Store + ":" + cfg.WeightsKey
			}
			if err != nil {
				return err
			}
			return describeBlob(cmd.OutOrStdout(), src, blob)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Inspect a local file instead of the store")
	return cmd
}

func newWeightsUploadCmd(o *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "upload <file>",
		Short:   "Put a weight blob into the store under the weights key",
		Example: "  mnistd weights upload ./mnist.bin --store sqlite --store-path ./weights.db",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := fsutil.ExpandHome(args[0])
			if err != nil {
				return err
			}
			blob, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			// Reject blobs the server would fail to decode.
			if model.IsNativeBlob(blob) {
				if _, err := model.DecodeNetwork(blob); err != nil {
					return err
				}
			}
			cfg, err := o.resolveConfig(cmd.Flags(), os.Getenv)
			if err != nil {
				return err
			}
			return putBlob(cmd.Context(), cmd.OutOrStdout(), cfg, blob, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing blob")
	return cmd
}

func writeBlobFile(w io.Writer, path string, blob []byte, force bool) error {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return err
	}
	if fsutil.PathExists(p) && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", p)
	}
	if err := fsutil.WriteFileAtomic(p, blob, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %d bytes to %s\n", len(blob), p)
	return nil
}

func putBlob(ctx context.Context, w io.Writer, cfg config.Config, blob []byte, force bool) error {
	store, err := blobstore.Open(cfg.StoreConfig())
	if err != nil {
		return err
	}
	defer store.Close()
	if !force {
		_, err := store.Get(ctx, cfg.WeightsKey)
		if err == nil {
			return fmt.Errorf("%s already holds %q (use --force to overwrite)", cfg.Store, cfg.WeightsKey)
		}
		if !blobstore.IsNotFound(err) {
			return err
		}
	}
	if err := store.Put(ctx, cfg.WeightsKey, blob); err != nil {
		return err
	}
	fmt.Fprintf(w, "stored %d bytes under %q (%s)\n", len(blob), cfg.WeightsKey, cfg.Store)
	return nil
}

func getBlob(ctx context.Context, cfg config.Config) ([]byte, error) {
	store, err := blobstore.Open(cfg.StoreConfig())
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Get(ctx, cfg.WeightsKey)
}

func describeBlob(w io.Writer, src string, blob []byte) error {
	if !model.IsNativeBlob(blob) {
		fmt.Fprintf(w, "%s: %d bytes, not a native blob (onnx support built: %v)\n", src, len(blob), model.ONNXAvailable())
		return nil
	}
	net, err := model.DecodeNetwork(blob)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %d bytes, format v%d, precision %s\n", src, len(blob), model.FormatVersion, net.Precision())
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tKIND\tIN\tOUT")
	for i, l := range net.Layers() {
		if l.Kind == model.LayerDense {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", i, l.Kind, l.In, l.Out)
		} else {
			fmt.Fprintf(tw, "%d\t%s\t-\t-\n", i, l.Kind)
		}
	}
	return tw.Flush()
}
