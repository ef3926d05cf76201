package grpc

import (
	"os"
	"regexp"
	"sort"
	"testing"
)

const protoFile = "../../../proto/vaxbook/v1/scheduling.proto"

var (
	protoPackageRE = regexp.MustCompile(`(?m)^package\s+([\w.]+);`)
	protoServiceRE = regexp.MustCompile(`(?m)^service\s+(\w+)\s*\{`)
	protoRPCRE     = regexp.MustCompile(`rpc\s+(\w+)\s*\(\s*google\.protobuf\.Struct\s*\)\s*returns\s*\(\s*google\.protobuf\.Struct\s*\)`)
)

func TestSchedulingServiceDesc_MatchesProto(t *testing.T) {
	b, err := os.ReadFile(protoFile)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	src := string(b)

	pkg := protoPackageRE.FindStringSubmatch(src)
	svc := protoServiceRE.FindStringSubmatch(src)
	if pkg == nil || svc == nil {
		t.Fatalf("proto file has no package or service declaration")
	}
	if got := pkg[1] + "." + svc[1]; got != ServiceName {
		t.Fatalf("proto service = %q, want %q", got, ServiceName)
	}
	if SchedulingServiceDesc.Metadata != "vaxbook/v1/scheduling.proto" {
		t.Fatalf("metadata = %v", SchedulingServiceDesc.Metadata)
	}

	var declared []string
	for _, m := range protoRPCRE.FindAllStringSubmatch(src, -1) {
		declared = append(declared, m[1])
	}
	var registered []string
	for _, m := range SchedulingServiceDesc.Methods {
		registered = append(registered, m.MethodName)
	}
	sort.Strings(declared)
	sort.Strings(registered)

	if len(declared) != len(registered) {
		t.Fatalf("proto rpcs = %v, registered = %v", declared, registered)
	}
	for i := range declared {
		if declared[i] != registered[i] {
			t.Fatalf("proto rpcs = %v, registered = %v", declared, registered)
		}
	}
}
