package rpc

// popFrame removes and returns the first element of frames, along with the
// remainder. Mirrors the teacher's util.PopStr helper used to walk a
// ZeroMQ multi-part message frame by frame.
func popFrame(frames [][]byte) ([]byte, [][]byte) {
	if len(frames) == 0 {
		return nil, frames
	}
	return frames[0], frames[1:]
}
