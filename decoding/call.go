package decoding

import "github.com/sarchlab/gxfifo/hooking"

// call executes a display list. Display lists cannot call other display
// lists; a nested call is consumed and ignored.
func (d *Decoder) call(cmd Command, outer *substream) (DecodeResult, error) {
	addr, size := cmd.Call()

	if outer != nil {
		logger.Warningf("ignoring call to display list 0x%08x from "+
			"display list 0x%08x", addr, outer.address)

		return DecodeResult{Cycles: CyclesCall}, nil
	}

	data, err := d.memory.Resolve(addr, size)
	if err != nil {
		return DecodeResult{}, &MalformedSubstreamError{
			Address: addr,
			Size:    size,
			Cause:   err,
		}
	}

	if d.NumHooks() > 0 {
		d.InvokeHook(hooking.HookCtx{
			Domain: d,
			Pos:    HookPosSubstream,
			Item:   Substream{Address: addr, Data: data},
		})
	}

	sub := &substream{address: addr}
	result := DecodeResult{Cycles: CyclesCall}

	for pos := 0; pos < len(data); {
		r, err := d.decodeAt(data, pos, sub)
		if err != nil {
			return DecodeResult{}, err
		}

		if r.Starved() {
			return DecodeResult{}, &MalformedSubstreamError{
				Address: addr,
				Size:    size,
				Offset:  pos,
			}
		}

		result.Cycles += r.Cycles
		result.Nested = append(result.Nested, r)
		pos += r.BytesConsumed
	}

	return result, nil
}
