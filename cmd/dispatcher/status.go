package main

import "sync"

// setStatus records the dispatcher's current lifecycle status.
func setStatus(value string) {
	st.setStatus(value)
}

// getStatus returns the dispatcher's current lifecycle status.
func getStatus() string {
	return st.getStatus()
}

// setLastError records err as the most recently observed dispatcher error.
func setLastError(err error) {
	st.setLastError(err)
}

// getErrorCount returns the total number of errors observed since start.
func getErrorCount() int {
	return st.getErrorCount()
}

type status struct {
	sync.RWMutex
	value      string
	errorCount int
	lastError  error
}

func (s *status) setStatus(value string) {
	s.Lock()
	s.value = value
	s.Unlock()
}

func (s *status) getStatus() string {
	s.RLock()
	defer s.RUnlock()
	return s.value
}

func (s *status) setLastError(err error) {
	s.Lock()
	s.lastError = err
	s.errorCount++
	s.Unlock()
}

func (s *status) getErrorCount() int {
	s.RLock()
	defer s.RUnlock()
	return s.errorCount
}

var st = &status{value: "starting"}
