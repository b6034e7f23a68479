package main

import (
	"fmt"
	"os"

	"path/filepath"

	"github.com/dsoprea/go-logging"
	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"

	"github.com/dsoprea/go-fat32"
)

type rootParameters struct {
	Filepath       string `short:"f" long:"filepath" description:"File-path of FAT32 filesystem image" required:"true"`
	FilenameFilter string `short:"p" long:"pattern" description:"Filename filter"`
	ShowDetail     bool   `short:"d" long:"detail" description:"Show additional entry detail"`
}

var (
	rootArguments = new(rootParameters)
)

func main() {
	defer func() {
		if state := recover(); state != nil {
			err := log.Wrap(state.(error))
			log.PrintError(err)
			os.Exit(-1)
		}
	}()

	p := flags.NewParser(rootArguments, flags.Default)

	_, err := p.Parse()
	if err != nil {
		os.Exit(1)
	}

	f, err := os.Open(rootArguments.Filepath)
	log.PanicIf(err)

	defer f.Close()

	fr := fat32.NewFat32Reader(f)

	err = fr.Parse()
	log.PanicIf(err)

	fn, err := fat32.NewFat32Navigator(fr, fr.RootCluster())
	log.PanicIf(err)

	for _, de := range fn.Entries() {
		if de.IsTerminator() == true || de.IsTombstone() == true {
			continue
		}

		if de.Attributes.IsListable() == false {
			continue
		}

		displayName := fat32.DisplayShortName(de.Name)

		if rootArguments.FilenameFilter != "" {
			isMatched, err := filepath.Match(rootArguments.FilenameFilter, displayName)
			log.PanicIf(err)

			if isMatched != true {
				continue
			}
		}

		if rootArguments.ShowDetail == true {
			fmt.Printf("## %s\n", displayName)
			fmt.Printf("\n")

			de.Dump()
		} else {
			kind := "    "
			if de.Attributes.IsDirectory() == true {
				kind = "DIR "
			}

			fmt.Printf("%s %15s %s\n", kind, humanize.Comma(int64(de.FileSize)), displayName)
		}
	}
}
