package grpcup

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Registry resolves "package.Service.Method" method references against a
// set of protobuf file descriptors loaded from linked Protobuf resources,
// exposing the protoreflect.MethodDescriptor needed to build and invoke a
// dynamic request.
type Registry struct {
	files *protoregistry.Files
}

// NewRegistry parses raw as a serialized descriptorpb.FileDescriptorSet
// (the typical output of `protoc --descriptor_set_out=... --include_imports`)
// and indexes its files for method lookup.
func NewRegistry(raw []byte) (*Registry, error) {
	var set descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("grpcup: parsing descriptor set: %w", err)
	}
	files, err := protodesc.NewFiles(&set)
	if err != nil {
		return nil, fmt.Errorf("grpcup: building file registry: %w", err)
	}
	return &Registry{files: files}, nil
}

// FindMethod splits fullMethod as "pkg.Service.Method" and resolves the
// corresponding protoreflect.MethodDescriptor.
func (r *Registry) FindMethod(fullMethod string) (protoreflect.MethodDescriptor, error) {
	idx := strings.LastIndex(fullMethod, ".")
	if idx < 0 {
		return nil, fmt.Errorf("grpcup: malformed method %q", fullMethod)
	}
	serviceName, methodName := fullMethod[:idx], fullMethod[idx+1:]

	desc, err := r.files.FindDescriptorByName(protoreflect.FullName(serviceName))
	if err != nil {
		return nil, fmt.Errorf("grpcup: service %q not found: %w", serviceName, err)
	}
	svc, ok := desc.(protoreflect.ServiceDescriptor)
	if !ok {
		return nil, fmt.Errorf("grpcup: %q is not a service", serviceName)
	}
	method := svc.Methods().ByName(protoreflect.Name(methodName))
	if method == nil {
		return nil, fmt.Errorf("grpcup: method %q not found on service %q", methodName, serviceName)
	}
	return method, nil
}

// ServiceName returns the service portion of "pkg.Service.Method".
func ServiceName(fullMethod string) string {
	idx := strings.LastIndex(fullMethod, ".")
	if idx < 0 {
		return fullMethod
	}
	return fullMethod[:idx]
}
