// libhwrt builds the runtime layer as a C library for the rest of the
// kernel:
//
//	go build -buildmode=c-shared -o libhwrt.so ./cmd/libhwrt
//	go build -buildmode=c-archive -o libhwrt.a ./cmd/libhwrt
//
// The exported symbols are declared in the generated header. Every entry
// point works before hwrt_subsystem_init, using the scalar strategies and
// skipping FPU hand-off.
package main

func main() {}
