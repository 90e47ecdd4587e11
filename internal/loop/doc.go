// Package loop implements the control loop of the device: a FIFO task
// queue, a multi-bit wake signal, and the single goroutine that services
// wake bits in priority order and drains queued tasks.
//
// Every goroutine other than the loop is a producer: it submits a task or
// raises a bit and never touches control state itself.
package loop
