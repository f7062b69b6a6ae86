package main

import (
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"fdp-go/internal/fdp"
)

// pod command
var podCmd = &cobra.Command{
	Use:   "pod",
	Short: "Manage pods",
}

var podCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a pod",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := unlockedApp(cmd, "CreatePod", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		addr, err := a.CreatePod(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		success("Pod %s created", args[0])
		fmt.Printf("Address: %s\n", addr)
		return nil
	},
}

var podListCmd = &cobra.Command{
	Use:     "ls",
	Short:   "List pods",
	Aliases: []string{"list"},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := unlockedApp(cmd, "ListPods", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		names, err := a.ListPods(cmd.Context())
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No pods.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var podRemoveCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Remove a pod",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := unlockedApp(cmd, "DeletePod", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.DeletePod(cmd.Context(), args[0]); err != nil {
			return err
		}
		success("Pod %s removed", args[0])
		return nil
	},
}

// directory commands
var mkdirCmd = &cobra.Command{
	Use:   "mkdir POD PATH",
	Short: "Create a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := unlockedApp(cmd, "MakeDir", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		return a.MakeDir(cmd.Context(), args[0], args[1])
	},
}

var rmdirCmd = &cobra.Command{
	Use:   "rmdir POD PATH",
	Short: "Remove an empty directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := unlockedApp(cmd, "RemoveDir", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		return a.RemoveDir(cmd.Context(), args[0], args[1])
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls POD [PATH]",
	Short: "List a directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := unlockedApp(cmd, "List", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		dir := fdp.RootPath
		if len(args) > 1 {
			dir = args[1]
		}
		listing, err := a.List(cmd.Context(), args[0], dir)
		if err != nil {
			return err
		}

		long, _ := cmd.Flags().GetBool("long")
		table := uitable.New()
		for _, d := range listing.Directories {
			table.AddRow(color.BlueString(d+"/"), "", "")
		}
		for _, f := range listing.Files {
			if !long {
				table.AddRow(f, "", "")
				continue
			}
			meta, err := a.Stat(cmd.Context(), args[0], fdp.JoinPath(dir, f))
			if err != nil {
				return err
			}
			table.AddRow(f, units.HumanSize(float64(meta.FileSize)), formatUnix(meta.ModificationTime))
		}
		fmt.Println(table)
		return nil
	},
}

// file commands
var uploadCmd = &cobra.Command{
	Use:   "upload POD LOCAL REMOTE",
	Short: "Upload a local file",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		opts, err := uploadOptions(cmd)
		if err != nil {
			return err
		}
		a, err := unlockedApp(cmd, "Upload", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		meta, err := a.Upload(cmd.Context(), args[0], args[1], args[2], opts)
		if err != nil {
			return err
		}
		success("Uploaded %s (%s)", meta.FullPath(), units.HumanSize(float64(meta.FileSize)))
		return nil
	},
}

// uploadOptions reads the --block-size and --content-type flags. Unset
// flags leave the configured defaults in place.
func uploadOptions(cmd *cobra.Command) (*fdp.UploadOptions, error) {
	opts := &fdp.UploadOptions{}
	if raw, _ := cmd.Flags().GetString("block-size"); raw != "" {
		n, err := units.FromHumanSize(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing --block-size: %w", err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("--block-size must be positive")
		}
		opts.BlockSize = int(n)
	}
	opts.ContentType, _ = cmd.Flags().GetString("content-type")
	return opts, nil
}

var importCmd = &cobra.Command{
	Use:   "import POD LOCAL_DIR REMOTE_DIR",
	Short: "Upload a local directory tree",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := unlockedApp(cmd, "ImportDirectory", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		result, err := a.ImportDirectory(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			if result != nil {
				fmt.Printf("Imported %d file(s) before the failure\n", result.Files)
			}
			return err
		}
		success("Imported %d file(s), %d new director(ies), %s",
			result.Files, result.Directories, units.HumanSize(float64(result.Bytes)))
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download POD REMOTE LOCAL",
	Short: "Download a file",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := unlockedApp(cmd, "Download", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		n, err := a.Download(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		success("Downloaded %s to %s (%s)", args[1], args[2], units.HumanSize(float64(n)))
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm POD PATH",
	Short: "Remove a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := unlockedApp(cmd, "Delete", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		return a.Delete(cmd.Context(), args[0], args[1])
	},
}

var statCmd = &cobra.Command{
	Use:   "stat POD PATH",
	Short: "Show file metadata",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := unlockedApp(cmd, "Stat", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		meta, err := a.Stat(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		printMetadata(meta)
		return nil
	},
}

func printMetadata(meta *fdp.FileMetadata) {
	table := uitable.New()
	table.AddRow("Pod:", meta.PodName)
	table.AddRow("Path:", meta.FullPath())
	table.AddRow("Size:", fmt.Sprintf("%s (%d bytes)", units.HumanSize(float64(meta.FileSize)), meta.FileSize))
	table.AddRow("Block Size:", units.HumanSize(float64(meta.BlockSize)))
	table.AddRow("Content Type:", meta.ContentType)
	table.AddRow("Created:", formatUnix(meta.CreationTime))
	table.AddRow("Modified:", formatUnix(meta.ModificationTime))
	table.AddRow("Accessed:", formatUnix(meta.AccessTime))
	table.AddRow("Owner:", meta.OwnerAddress.String())
	table.AddRow("Blocks:", color.HiBlackString(meta.BlocksReference.String()))
	fmt.Println(table)
}

func formatUnix(sec int64) string {
	return time.Unix(sec, 0).Format("2006-01-02 15:04:05")
}

// share commands
var shareCmd = &cobra.Command{
	Use:   "share POD PATH",
	Short: "Share a file and print its reference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := unlockedApp(cmd, "Share", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		ref, err := a.Share(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(ref.String())
		return nil
	},
}

var sharedCmd = &cobra.Command{
	Use:   "shared",
	Short: "Inspect and save files shared with you",
}

var sharedShowCmd = &cobra.Command{
	Use:   "show REFERENCE",
	Short: "Show a shared file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := unlockedApp(cmd, "SharedInfo", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		info, err := a.SharedInfo(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Shared by %s\n\n", info.SourceAddress)
		printMetadata(&info.Meta)
		return nil
	},
}

var sharedSaveCmd = &cobra.Command{
	Use:   "save REFERENCE POD DIR",
	Short: "Save a shared file into a pod",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := unlockedApp(cmd, "SaveShared", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		name, _ := cmd.Flags().GetString("name")
		meta, err := a.SaveShared(cmd.Context(), args[0], args[1], args[2], name)
		if err != nil {
			return err
		}
		success("Saved %s in pod %s", meta.FullPath(), meta.PodName)
		return nil
	},
}

func init() {
	podCmd.AddCommand(podCreateCmd)
	podCmd.AddCommand(podListCmd)
	podCmd.AddCommand(podRemoveCmd)

	lsCmd.Flags().BoolP("long", "l", false, "Show size and modification time")
	uploadCmd.Flags().String("block-size", "", "Block size, e.g. 512KB (default from config)")
	uploadCmd.Flags().String("content-type", "", "Content type recorded with the file")

	sharedCmd.AddCommand(sharedShowCmd)
	sharedCmd.AddCommand(sharedSaveCmd)
	sharedSaveCmd.Flags().String("name", "", "Save under a different file name")

	rootCmd.AddCommand(podCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(rmdirCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(sharedCmd)
}
