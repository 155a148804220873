package vk

import "strconv"

// Handle is an opaque object token returned by a creation call.
// NullHandle is never a valid object.
type Handle uint64

const NullHandle Handle = 0

// String formats the handle the way native tooling prints it.
func (h Handle) String() string {
	return "0x" + strconv.FormatUint(uint64(h), 16)
}

func (h Handle) handles() []Handle { return []Handle{h} }

// Handles is a list argument (e.g. pCommandBuffers).
type Handles []Handle

func (hs Handles) handles() []Handle { return hs }

// ObjectType identifies every trackable object kind.
type ObjectType uint8

const (
	ObjectUnknown ObjectType = iota
	ObjectInstance
	ObjectPhysicalDevice
	ObjectDevice
	ObjectQueue
	ObjectCommandBuffer
	ObjectSemaphore
	ObjectFence
	ObjectDeviceMemory
	ObjectBuffer
	ObjectImage
	ObjectEvent
	ObjectQueryPool
	ObjectBufferView
	ObjectImageView
	ObjectShaderModule
	ObjectPipelineCache
	ObjectPipelineLayout
	ObjectRenderPass
	ObjectPipeline
	ObjectDescriptorSetLayout
	ObjectSampler
	ObjectDescriptorPool
	ObjectDescriptorSet
	ObjectFramebuffer
	ObjectCommandPool
	ObjectSurfaceKHR
	ObjectSwapchainKHR
	ObjectDebugUtilsMessengerEXT

	objectTypeCount
)

var objectTypeNames = [objectTypeCount]string{
	ObjectUnknown:                "VkUnknown",
	ObjectInstance:               "VkInstance",
	ObjectPhysicalDevice:         "VkPhysicalDevice",
	ObjectDevice:                 "VkDevice",
	ObjectQueue:                  "VkQueue",
	ObjectCommandBuffer:          "VkCommandBuffer",
	ObjectSemaphore:              "VkSemaphore",
	ObjectFence:                  "VkFence",
	ObjectDeviceMemory:           "VkDeviceMemory",
	ObjectBuffer:                 "VkBuffer",
	ObjectImage:                  "VkImage",
	ObjectEvent:                  "VkEvent",
	ObjectQueryPool:              "VkQueryPool",
	ObjectBufferView:             "VkBufferView",
	ObjectImageView:              "VkImageView",
	ObjectShaderModule:           "VkShaderModule",
	ObjectPipelineCache:          "VkPipelineCache",
	ObjectPipelineLayout:         "VkPipelineLayout",
	ObjectRenderPass:             "VkRenderPass",
	ObjectPipeline:               "VkPipeline",
	ObjectDescriptorSetLayout:    "VkDescriptorSetLayout",
	ObjectSampler:                "VkSampler",
	ObjectDescriptorPool:         "VkDescriptorPool",
	ObjectDescriptorSet:          "VkDescriptorSet",
	ObjectFramebuffer:            "VkFramebuffer",
	ObjectCommandPool:            "VkCommandPool",
	ObjectSurfaceKHR:             "VkSurfaceKHR",
	ObjectSwapchainKHR:           "VkSwapchainKHR",
	ObjectDebugUtilsMessengerEXT: "VkDebugUtilsMessengerEXT",
}

// String returns the native type name, e.g. "VkBuffer".
func (t ObjectType) String() string {
	if t >= objectTypeCount {
		return "VkUnknown(" + strconv.Itoa(int(t)) + ")"
	}
	return objectTypeNames[t]
}

// Dispatchable reports whether handles of this type carry a dispatch table.
func (t ObjectType) Dispatchable() bool {
	switch t {
	case ObjectInstance, ObjectPhysicalDevice, ObjectDevice, ObjectQueue, ObjectCommandBuffer:
		return true
	}
	return false
}

// Valid reports whether t names a trackable type.
func (t ObjectType) Valid() bool {
	return t > ObjectUnknown && t < objectTypeCount
}

// ObjectTypes returns every trackable type in declaration order.
func ObjectTypes() []ObjectType {
	out := make([]ObjectType, 0, objectTypeCount-1)
	for t := ObjectInstance; t < objectTypeCount; t++ {
		out = append(out, t)
	}
	return out
}

// ParseObjectType resolves a native type name ("VkBuffer") or its short
// form ("Buffer").
func ParseObjectType(s string) (ObjectType, bool) {
	for t := ObjectInstance; t < objectTypeCount; t++ {
		name := objectTypeNames[t]
		if s == name || s == name[2:] {
			return t, true
		}
	}
	return ObjectUnknown, false
}
