package assemblyio

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/PuraLingua/pura-lingua-sub001/binaryfmt"
	"github.com/PuraLingua/pura-lingua-sub001/typesystem"
)

// Load maps path into memory and decodes it as an assembly, registering
// the result with mgr under the name recorded in the file itself.
// Grounded on saferwall/pe's File.New: open, then memory-map read-only,
// closing the descriptor on either failure since the mapping keeps the
// pages resident without it.
func Load(path string, mgr *typesystem.AssemblyManager) (*typesystem.Assembly, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapError(InvalidFormat, err, "open %s", path)
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, wrapError(InvalidFormat, err, "mmap %s", path)
	}
	f.Close()

	file, err := binaryfmt.ParseFile(data)
	if err != nil {
		return nil, wrapError(InvalidFormat, err, "%s", path)
	}

	return decodeAssembly(file, mgr)
}
