package fat

import (
	"os"

	"github.com/arctir/pennos/internal/kernel"
)

// Mkfs implements spec.md 4.5's mkfs. blocksInFAT must be in [1,32];
// blockSizeConfig must be in [0,4]. An existing image at name is
// overwritten, matching the original implementation's unconditional
// truncate-and-rebuild behavior (resolved from original_source, since the
// distilled spec is silent on mkfs-over-existing-image).
func Mkfs(name string, blocksInFAT int, blockSizeConfig int) kernel.Errno {
	if blocksInFAT < 1 || blocksInFAT > 32 {
		return kernel.ErrInvalidArgument
	}
	if blockSizeConfig < 0 || blockSizeConfig > 4 {
		return kernel.ErrInvalidArgument
	}
	blockSize := blockSizes[blockSizeConfig]

	fatEntries := blocksInFAT * blockSize / 2
	dataBlocks := fatEntries - 1
	totalSize := int64(blocksInFAT+dataBlocks) * int64(blockSize)
	if blocksInFAT == 32 && blockSizeConfig == 4 {
		totalSize -= 4096
	}

	f, err := os.Create(name)
	if err != nil {
		return kernel.ErrInvalidArgument
	}
	defer f.Close()

	fatBytes := make([]byte, blocksInFAT*blockSize)
	header := uint16(blocksInFAT)<<8 | uint16(blockSizeConfig)
	putUint16(fatBytes, 0, header)
	putUint16(fatBytes, 1, blockLast)
	if _, err := f.WriteAt(fatBytes, 0); err != nil {
		return kernel.ErrInvalidArgument
	}

	rootBlock := make([]byte, blockSize) // all-zero entries: name[0]=0 sentinel
	dataStart := int64(blocksInFAT) * int64(blockSize)
	if _, err := f.WriteAt(rootBlock, dataStart); err != nil {
		return kernel.ErrInvalidArgument
	}

	if err := f.Truncate(totalSize); err != nil {
		return kernel.ErrInvalidArgument
	}
	return kernel.OK
}

func putUint16(b []byte, idx int, v uint16) {
	b[idx*2] = byte(v)
	b[idx*2+1] = byte(v >> 8)
}
