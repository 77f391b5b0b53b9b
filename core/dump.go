package core

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unsafe"

	"github.com/riftjit/rift64/decoder"
	"github.com/riftjit/rift64/state"
	"github.com/riftjit/rift64/tcache"
)

// DumpBlock renders a translated block's guest instructions and host code
// size for debugging, grounded on the teacher's disassembly-dump tooling:
// rather than disassembling the emitted x86_64 bytes, it re-fetches and
// re-decodes the guest words the block covers (the same decode path
// TranslateBlock used), which is what a reader actually wants when
// inspecting what a cached translation corresponds to.
func DumpBlock(mem state.AddressSpace, b *tcache.Block) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "block pc=0x%x host=0x%x guest_bytes=%d host_bytes=%d instrs=%d executed=%d\n",
		b.GuestFingerprint, b.HostEntry, b.GuestByteLen, b.HostByteLen, b.GuestInstrCount, b.ExecuteCount)

	pc := b.GuestFingerprint
	end := pc + uint64(b.GuestByteLen)
	for pc < end {
		host, ok := mem.Translate(pc, 4, false)
		if !ok {
			fmt.Fprintf(&sb, "  0x%x: <unmapped>\n", pc)
			pc += 4
			continue
		}
		raw := unsafe.Slice((*byte)(unsafe.Pointer(host)), 4)
		word := binary.LittleEndian.Uint32(raw)
		inst, err := decoder.Decode(word)
		if err != nil {
			fmt.Fprintf(&sb, "  0x%x: %08x  undefined\n", pc, word)
		} else {
			fmt.Fprintf(&sb, "  0x%x: %08x  %s\n", pc, word, inst.Class)
		}
		pc += 4
	}
	return sb.String()
}
