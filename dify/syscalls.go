package dify

import (
	"strconv"
	"strings"
)

// syscallCount is one past the highest syscall number the sandbox allow
// list covers on x86_64.
const syscallCount = 457

// allSyscalls returns the comma-joined allow list "0,1,...,456" the
// sandbox reads from ALLOWED_SYSCALLS. Enumerating every number is
// equivalent to disabling seccomp filtering.
func allSyscalls() string {
	nums := make([]string, syscallCount)
	for i := range nums {
		nums[i] = strconv.Itoa(i)
	}
	return strings.Join(nums, ",")
}
