// The interactive shell: a line-oriented dispatcher over one open image
// session.

package fat32

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/dsoprea/go-logging"
)

const (
	shellPrompt = "mfs> "

	// Input lines are capped at 255 bytes including the newline; longer
	// lines are truncated rather than rejected.
	maxCommandLineLength = 255

	// Up to five whitespace-delimited tokens are recognized. Surplus tokens
	// are discarded.
	maxCommandTokens = 5
)

// commandSpec declares a verb's preconditions so that the dispatcher can
// check them centrally before the handler runs.
type commandSpec struct {
	// requiresOpen rejects the verb with a fixed message while no image is
	// open.
	requiresOpen bool

	// argCount is the number of arguments the handler needs.
	argCount int

	// wantsFilename selects the missing-argument message: verbs that take a
	// name complain about the name, the rest complain about the count.
	wantsFilename bool
}

var (
	commandTable = map[string]commandSpec{
		"open":  {requiresOpen: false, argCount: 1, wantsFilename: true},
		"close": {requiresOpen: false, argCount: 0},
		"info":  {requiresOpen: true, argCount: 0},
		"stat":  {requiresOpen: true, argCount: 1, wantsFilename: true},
		"ls":    {requiresOpen: true, argCount: 0},
		"cd":    {requiresOpen: true, argCount: 1, wantsFilename: true},
		"get":   {requiresOpen: true, argCount: 1, wantsFilename: true},
		"read":  {requiresOpen: true, argCount: 3, wantsFilename: false},
		"del":   {requiresOpen: true, argCount: 1, wantsFilename: true},
		"undel": {requiresOpen: true, argCount: 1, wantsFilename: true},
	}
)

// Shell owns one image session and the read/eval loop over it. The session
// is either closed (no image) or open (image handle, parsed geometry, and
// one cached directory); verbs move between the two states.
type Shell struct {
	in  io.Reader
	out io.Writer

	image *os.File
	fr    *Fat32Reader
	nav   *Fat32Navigator
}

// NewShell returns a shell reading commands from `in` and printing to `out`.
func NewShell(in io.Reader, out io.Writer) *Shell {
	return &Shell{
		in:  in,
		out: out,
	}
}

func (s *Shell) isOpen() bool {
	return s.image != nil
}

// Run drives the prompt loop until `quit`, `exit`, or end of input. Any open
// session is released before returning. All verb failures are reported as a
// single line and the loop continues; nothing unwinds past it.
func (s *Shell) Run() (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(err).Name(), err)
			}
		}
	}()

	defer s.releaseImage()

	scanner := bufio.NewScanner(s.in)

	for {
		fmt.Fprintf(s.out, "%s", shellPrompt)

		if scanner.Scan() == false {
			err = scanner.Err()
			log.PanicIf(err)

			// End of input is an implicit `exit`.
			break
		}

		line := scanner.Text()
		if len(line) > maxCommandLineLength-1 {
			line = line[:maxCommandLineLength-1]
		}

		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}

		if len(tokens) > maxCommandTokens {
			tokens = tokens[:maxCommandTokens]
		}

		verb := tokens[0]
		args := tokens[1:]

		if verb == "quit" || verb == "exit" {
			break
		}

		s.dispatch(verb, args)
	}

	return nil
}

// dispatch checks the verb's preconditions and routes to its handler,
// reporting any failure as one line.
func (s *Shell) dispatch(verb string, args []string) {
	spec, found := commandTable[verb]
	if found == false {
		fmt.Fprintf(s.out, "Error: Unknown command.\n")
		return
	}

	if spec.requiresOpen == true && s.isOpen() == false {
		fmt.Fprintf(s.out, "Error: File system image must be opened first.\n")
		return
	}

	if len(args) < spec.argCount {
		if spec.wantsFilename == true {
			fmt.Fprintf(s.out, "Error: Filename not given.\n")
		} else {
			fmt.Fprintf(s.out, "Error: Not enough arguments. (%d arguments given)\n", len(args))
		}

		return
	}

	args = args[:spec.argCount]

	var err error

	switch verb {
	case "open":
		err = s.commandOpen(args[0])
	case "close":
		err = s.commandClose()
	case "info":
		err = s.commandInfo()
	case "stat":
		err = s.commandStat(args[0])
	case "ls":
		err = s.commandLs()
	case "cd":
		err = s.commandCd(args[0])
	case "get":
		err = s.commandGet(args[0])
	case "read":
		err = s.commandRead(args[0], args[1], args[2])
	case "del":
		err = s.commandDel(args[0])
	case "undel":
		err = s.commandUndel(args[0])
	}

	if err != nil {
		s.printError(err)
	}
}

// printError maps the tagged error kinds to their fixed single-line
// messages. Anything unrecognized is reported with its own text.
func (s *Shell) printError(err error) {
	switch {
	case errors.Is(err, ErrImageNotFound):
		fmt.Fprintf(s.out, "Error: File system image not found.\n")
	case errors.Is(err, ErrAlreadyOpen):
		fmt.Fprintf(s.out, "Error: File system image is already open.\n")
	case errors.Is(err, ErrNotOpen):
		fmt.Fprintf(s.out, "Error: File system not open.\n")
	case errors.Is(err, ErrNotFound):
		// The trailing space is long-standing output; tools grep for it.
		fmt.Fprintf(s.out, "Error: File not found. \n")
	case errors.Is(err, ErrNotADirectory):
		fmt.Fprintf(s.out, "Error: Entry is not a directory.\n")
	default:
		fmt.Fprintf(s.out, "Error: %s\n", err.Error())
	}
}

func (s *Shell) releaseImage() {
	if s.image != nil {
		s.image.Close()

		s.image = nil
		s.fr = nil
		s.nav = nil
	}
}

func (s *Shell) commandOpen(imageFilepath string) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	if s.isOpen() == true {
		return ErrAlreadyOpen
	}

	f, err := os.OpenFile(imageFilepath, os.O_RDWR, 0)
	if err != nil {
		return ErrImageNotFound
	}

	fr := NewFat32Reader(f)

	err = fr.Parse()
	if err != nil {
		f.Close()
		return err
	}

	nav, err := NewFat32Navigator(fr, fr.RootCluster())
	if err != nil {
		f.Close()
		return err
	}

	s.image = f
	s.fr = fr
	s.nav = nav

	return nil
}

func (s *Shell) commandClose() error {
	if s.isOpen() == false {
		return ErrNotOpen
	}

	s.releaseImage()

	return nil
}

func (s *Shell) commandInfo() error {
	bs := s.fr.BootSector()

	fmt.Fprintf(s.out, "BPB_BytsPerSec: 0x%08X (%d)\n", bs.BytesPerSector, bs.BytesPerSector)
	fmt.Fprintf(s.out, "BPB_SecPerClus: 0x%08X (%d)\n", bs.SectorsPerCluster, bs.SectorsPerCluster)
	fmt.Fprintf(s.out, "BPB_RsvdSecCnt: 0x%08X (%d)\n", bs.ReservedSectorCount, bs.ReservedSectorCount)
	fmt.Fprintf(s.out, "BPB_NumFATS: 0x%08X (%d)\n", bs.NumFats, bs.NumFats)
	fmt.Fprintf(s.out, "BPB_FATSz32: 0x%08X (%d)\n", bs.FatSize32, bs.FatSize32)
	fmt.Fprintf(s.out, "OEMName: [%s]\n", bs.OemNameString())
	fmt.Fprintf(s.out, "VolumeLabel: [%s]\n", bs.VolumeLabelString())

	return nil
}

func (s *Shell) commandStat(name string) error {
	_, de, err := s.nav.Find(name)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "Name: %s\n", de.Name[:])
	fmt.Fprintf(s.out, "Attribute: 0x%02X\n", uint8(de.Attributes))
	fmt.Fprintf(s.out, "FirstClusterHigh: %d\n", de.FirstClusterHigh)
	fmt.Fprintf(s.out, "FirstClusterLow: %d\n", de.FirstClusterLow)
	fmt.Fprintf(s.out, "FileSize: %d\n", de.FileSize)

	return nil
}

func (s *Shell) commandLs() error {
	for _, rawName := range s.nav.VisibleNames() {
		fmt.Fprintf(s.out, "%s \n", rawName[:])
	}

	return nil
}

func (s *Shell) commandCd(name string) error {
	return s.nav.ChangeDirectory(name)
}

func (s *Shell) commandGet(name string) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	_, de, err := s.nav.Find(name)
	if err != nil {
		return err
	}

	// The host file is named after the token as typed, not the on-disk
	// 11-byte name.
	g, err := os.Create(name)
	log.PanicIf(err)

	defer g.Close()

	err = s.fr.WriteFromClusterChain(de.DataCluster(), de.FileSize, g)
	log.PanicIf(err)

	return nil
}

func (s *Shell) commandRead(name, offsetRaw, lengthRaw string) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	_, de, err := s.nav.Find(name)
	if err != nil {
		return err
	}

	// Unparseable numbers read as zero.
	offset, _ := strconv.Atoi(offsetRaw)
	length, _ := strconv.Atoi(lengthRaw)

	err = s.fr.WriteWindow(de.DataCluster(), uint32(offset), uint32(length), s.out)
	log.PanicIf(err)

	fmt.Fprintf(s.out, "\n")

	return nil
}

func (s *Shell) commandDel(name string) error {
	return s.nav.Delete(name)
}

func (s *Shell) commandUndel(name string) error {
	return s.nav.Undelete(name)
}
