package main

// filemesh program
// This opens (or creates) a share rooted at a directory and performs a
// single metadata operation against it, printing the resulting row (or
// listing) to stdout. It is the operator-facing entry point onto the
// share engine, in the same single-command kingpin shape the teacher's
// gitp4transfer/gitgraph tools use rather than a subcommand tree.

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/perforce/p4prometheus/version"
	"github.com/pkg/profile"
	"github.com/rcowham/filemesh/config"
	"github.com/rcowham/filemesh/id"
	"github.com/rcowham/filemesh/internal/errs"
	"github.com/rcowham/filemesh/share"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

func main() {
	var (
		root = kingpin.Arg(
			"root",
			"Share root directory (created if it does not yet exist).",
		).Required().String()
		path = kingpin.Arg(
			"path",
			"Path within the share to operate on.",
		).Default("/").String()
		configFile = kingpin.Flag(
			"config",
			"Config file for filemesh.",
		).Default("filemesh.yaml").Short('c').String()
		instanceName = kingpin.Flag(
			"instance",
			"Instance name, used only the first time a share is created.",
		).Default("host").Short('i').String()
		op = kingpin.Flag(
			"op",
			"Operation to perform: ls|get|mkdir|touch|setperm|settime|rm|mv|realpath.",
		).Default("ls").Short('o').String()
		to = kingpin.Flag(
			"to",
			"Destination path, for --op=mv.",
		).String()
		canWrite = kingpin.Flag(
			"write",
			"Can-write permission bit, for --op=mkdir|touch|setperm.",
		).Bool()
		canExecute = kingpin.Flag(
			"execute",
			"Can-execute permission bit, for --op=mkdir|touch|setperm.",
		).Bool()
		timestamp = kingpin.Flag(
			"timestamp",
			"Unix timestamp, for --op=settime.",
		).Int64()
		debug = kingpin.Flag(
			"debug",
			"Enable debugging level.",
		).Int()
		profiling = kingpin.Flag(
			"profile",
			"Enable CPU profiling via pkg/profile, writing to the current directory.",
		).Bool()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("filemesh")).Author("Robert Cowham")
	kingpin.CommandLine.Help = "Opens (or creates) a filemesh share and runs one metadata operation against it.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	if *profiling {
		defer profile.Start(profile.CPUProfile).Stop()
	}

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug > 0 {
		logger.Level = logrus.DebugLevel
	}

	cfg, err := config.LoadConfigFile(*configFile)
	if err != nil {
		logger.Errorf("error loading config file: %v", err)
		os.Exit(1)
	}

	startTime := time.Now()
	logger.Infof("%v", version.Print("filemesh"))
	logger.Infof("Starting %s, root: %v, op: %v", startTime, *root, *op)

	s, err := share.Open(*root, *instanceName, cfg, logger)
	if err != nil {
		logger.Errorf("error opening share: %v", err)
		os.Exit(1)
	}
	defer s.Close()

	if err := run(s, strings.ToLower(*op), *path, *to, *canWrite, *canExecute, *timestamp); err != nil {
		if ae, ok := err.(*errs.ActionError); ok {
			fmt.Fprintf(os.Stderr, "%s: %s\n", *op, ae.Code)
			os.Exit(2)
		}
		logger.Errorf("%s %s: %v", *op, *path, err)
		os.Exit(1)
	}
}

func run(s *share.Share, op, path, to string, canWrite, canExecute bool, timestamp int64) error {
	switch op {
	case "get":
		f, err := s.Get(path)
		if err != nil {
			return err
		}
		printFile(path, f)
		return nil
	case "ls":
		dir, err := s.OpenDirectory(path)
		if err != nil {
			return err
		}
		children, err := s.GetDirectory(dir, 0, 1<<20)
		if err != nil {
			return err
		}
		for _, c := range children {
			printFile(c.Name, c)
		}
		return nil
	case "mkdir":
		f, err := s.CreateDirectory(path, canWrite, canExecute)
		if err != nil {
			return err
		}
		printFile(path, f)
		return nil
	case "touch":
		f, err := s.Create(path, true, canWrite, canExecute)
		if err != nil {
			return err
		}
		printFile(path, f)
		return nil
	case "setperm":
		return s.SetPermissions(path, canWrite, canExecute)
	case "settime":
		return s.SetTimestamp(path, id.Timestamp(timestamp))
	case "rm":
		return s.Delete(path)
	case "mv":
		if to == "" {
			return errs.New(errs.Invalid)
		}
		return s.Move(path, to)
	case "realpath":
		f, err := s.Get(path)
		if err != nil {
			return err
		}
		p, err := s.GetRealPath(f)
		if err != nil {
			return err
		}
		fmt.Println(p)
		return nil
	default:
		return fmt.Errorf("unknown --op %q", op)
	}
}

func printFile(name string, f share.File) {
	kind := "d"
	if f.IsFile {
		kind = "f"
	}
	if f.IsSplit {
		kind += "s"
	}
	perms := "-"
	if f.Permissions.CanWrite {
		perms = "w"
	}
	if f.Permissions.CanExecute {
		perms += "x"
	}
	fmt.Printf("%-3s %-4s %-20d %s\n", kind, perms, f.Modified, name)
}
