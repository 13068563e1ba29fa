package main

// filemeshsniff program
// Reads the first bytes of a blob's real on-disk path and reports its
// apparent content kind via h2non/filetype, the same 261-byte-head
// sniff the teacher's GitBlob.setCompressionDetails uses to distinguish
// binary from text before writing a P4 journal record. The share engine
// itself never interprets blob content (a Non-goal); this is a separate
// operator/debugging tool layered on top of it via GetRealPath.

import (
	"fmt"
	"io"
	"os"

	"github.com/h2non/filetype"
	"github.com/perforce/p4prometheus/version"
	"github.com/rcowham/filemesh/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/rcowham/filemesh/share"
)

// sniffHeadBytes mirrors the teacher's head-length cap: filetype's
// matchers never need more than the first 261 bytes.
const sniffHeadBytes = 261

func main() {
	var (
		root = kingpin.Arg(
			"root",
			"Share root directory.",
		).Required().String()
		path = kingpin.Arg(
			"path",
			"Path within the share to sniff.",
		).Required().String()
		configFile = kingpin.Flag(
			"config",
			"Config file for filemesh.",
		).Default("filemesh.yaml").Short('c').String()
		instanceName = kingpin.Flag(
			"instance",
			"Instance name, used only the first time a share is created.",
		).Default("host").Short('i').String()
		debug = kingpin.Flag(
			"debug",
			"Enable debugging level.",
		).Default("0").Int()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("filemeshsniff")).Author("Robert Cowham")
	kingpin.CommandLine.Help = "Reports the apparent content kind of a filemesh blob.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

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

	s, err := share.Open(*root, *instanceName, cfg, logger)
	if err != nil {
		logger.Errorf("error opening share: %v", err)
		os.Exit(1)
	}
	defer s.Close()

	f, err := s.Get(*path)
	if err != nil {
		logger.Errorf("error resolving %q: %v", *path, err)
		os.Exit(1)
	}
	if !f.IsFile {
		fmt.Printf("%s: directory\n", *path)
		return
	}

	realPath, err := s.GetRealPath(f)
	if err != nil {
		logger.Errorf("error resolving blob path: %v", err)
		os.Exit(1)
	}

	kind, err := sniff(realPath)
	if err != nil {
		logger.Errorf("error sniffing %q: %v", realPath, err)
		os.Exit(1)
	}
	fmt.Printf("%s: %s\n", *path, kind)
}

func sniff(realPath string) (string, error) {
	blob, err := os.Open(realPath)
	if err != nil {
		return "", err
	}
	defer blob.Close()

	head := make([]byte, sniffHeadBytes)
	n, err := blob.Read(head)
	if err != nil && err != io.EOF {
		return "", err
	}
	head = head[:n]

	switch {
	case filetype.IsImage(head):
		return describe(head, "image")
	case filetype.IsVideo(head):
		return describe(head, "video")
	case filetype.IsArchive(head):
		return describe(head, "archive")
	case filetype.IsAudio(head):
		return describe(head, "audio")
	case filetype.IsDocument(head):
		return describe(head, "document")
	default:
		return "text/unknown", nil
	}
}

func describe(head []byte, category string) (string, error) {
	kind, _ := filetype.Match(head)
	if kind == filetype.Unknown {
		return category, nil
	}
	return fmt.Sprintf("%s (%s, %s)", category, kind.Extension, kind.MIME.Value), nil
}
