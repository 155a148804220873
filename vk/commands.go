package vk

import "sort"

// Op classifies what a command does to object lifetimes.
type Op uint8

const (
	// OpUse only reads its handle arguments.
	OpUse Op = iota
	// OpCreate produces new objects owned by the Parent argument.
	OpCreate
	// OpAllocate produces objects from the pool at Pool.
	OpAllocate
	// OpGet retrieves objects that exist implicitly (queues).
	OpGet
	// OpEnumerate retrieves a list of implicit objects.
	OpEnumerate
	// OpDestroy destroys the object at Target.
	OpDestroy
	// OpFree returns the objects at Target to the pool at Pool.
	OpFree
	// OpReset frees every object allocated from the pool at Pool.
	OpReset
)

var opNames = [...]string{"use", "create", "allocate", "get", "enumerate", "destroy", "free", "reset"}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "op?"
}

// Produces reports whether the command yields handles in Call.Out.
func (o Op) Produces() bool {
	return o == OpCreate || o == OpAllocate || o == OpGet || o == OpEnumerate
}

// Retires reports whether the command ends object lifetimes.
func (o Op) Retires() bool {
	return o == OpDestroy || o == OpFree || o == OpReset
}

// Scope is the dispatch level of a command.
type Scope uint8

const (
	ScopeGlobal Scope = iota
	ScopeInstance
	ScopeDevice
)

func (s Scope) String() string {
	switch s {
	case ScopeGlobal:
		return "global"
	case ScopeInstance:
		return "instance"
	case ScopeDevice:
		return "device"
	}
	return "scope?"
}

// Param describes one handle argument.
type Param struct {
	Name     string
	Type     ObjectType
	Optional bool
	List     bool
}

// Command is the static description of an entry point.
type Command struct {
	Name    string
	Params  []Param
	Parent  int
	Target  int
	Pool    int
	Op      Op
	Creates ObjectType

	// Implicit marks produced objects that are reclaimed with their parent
	// and never destroyed directly by the application.
	Implicit bool
}

// Scope derives the dispatch level from the first parameter.
func (c *Command) Scope() Scope {
	if len(c.Params) == 0 || !c.Params[0].Type.Dispatchable() {
		return ScopeGlobal
	}
	switch c.Params[0].Type {
	case ObjectInstance, ObjectPhysicalDevice:
		return ScopeInstance
	}
	return ScopeDevice
}

// Lookup returns the command description for name.
func Lookup(name string) (*Command, bool) {
	c, ok := commands[name]
	return c, ok
}

// Commands returns all known command names in sorted order.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func p(name string, t ObjectType) Param    { return Param{Name: name, Type: t} }
func opt(name string, t ObjectType) Param  { return Param{Name: name, Type: t, Optional: true} }
func list(name string, t ObjectType) Param { return Param{Name: name, Type: t, List: true, Optional: true} }

func use(name string, params ...Param) *Command {
	return &Command{Name: name, Op: OpUse, Params: params, Parent: -1, Target: -1, Pool: -1}
}

func create(name string, creates ObjectType, parent int, params ...Param) *Command {
	return &Command{Name: name, Op: OpCreate, Creates: creates, Params: params, Parent: parent, Target: -1, Pool: -1}
}

func destroy(name string, target int, params ...Param) *Command {
	params[target].Optional = true
	return &Command{Name: name, Op: OpDestroy, Params: params, Parent: -1, Target: target, Pool: -1}
}

func implicit(c *Command) *Command {
	c.Implicit = true
	return c
}

var commands = map[string]*Command{}

func register(cmds ...*Command) {
	for _, c := range cmds {
		commands[c.Name] = c
	}
}

// device-level create/destroy pair for simple objects.
func pair(obj ObjectType, extra ...Param) {
	name := obj.String()[2:]
	register(
		create("vkCreate"+name, obj, 0, append([]Param{p("device", ObjectDevice)}, extra...)...),
		destroy("vkDestroy"+name, 1, p("device", ObjectDevice), p(lowerFirst(name), obj)),
	)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

func init() {
	instance := p("instance", ObjectInstance)
	physical := p("physicalDevice", ObjectPhysicalDevice)
	device := p("device", ObjectDevice)
	queue := p("queue", ObjectQueue)
	cb := p("commandBuffer", ObjectCommandBuffer)

	// Global and instance level.
	register(
		create("vkCreateInstance", ObjectInstance, -1),
		use("vkEnumerateInstanceExtensionProperties"),
		use("vkEnumerateInstanceLayerProperties"),
		use("vkEnumerateInstanceVersion"),
		destroy("vkDestroyInstance", 0, instance),
		implicit(&Command{Name: "vkEnumeratePhysicalDevices", Op: OpEnumerate, Creates: ObjectPhysicalDevice,
			Params: []Param{instance}, Parent: -1, Target: -1, Pool: -1}),
		use("vkGetPhysicalDeviceProperties", physical),
		use("vkGetPhysicalDeviceFeatures", physical),
		use("vkGetPhysicalDeviceMemoryProperties", physical),
		use("vkGetPhysicalDeviceQueueFamilyProperties", physical),
		use("vkGetPhysicalDeviceFormatProperties", physical),
		use("vkEnumerateDeviceExtensionProperties", physical),
		use("vkGetPhysicalDeviceSurfaceSupportKHR", physical, p("surface", ObjectSurfaceKHR)),
		use("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", physical, p("surface", ObjectSurfaceKHR)),
		use("vkGetPhysicalDeviceSurfaceFormatsKHR", physical, p("surface", ObjectSurfaceKHR)),
		create("vkCreateDevice", ObjectDevice, -1, physical),
		create("vkCreateHeadlessSurfaceEXT", ObjectSurfaceKHR, 0, instance),
		destroy("vkDestroySurfaceKHR", 1, instance, p("surface", ObjectSurfaceKHR)),
		create("vkCreateDebugUtilsMessengerEXT", ObjectDebugUtilsMessengerEXT, 0, instance),
		destroy("vkDestroyDebugUtilsMessengerEXT", 1, instance, p("messenger", ObjectDebugUtilsMessengerEXT)),
		use("vkSubmitDebugUtilsMessageEXT", instance),
	)

	// Device and queues.
	register(
		destroy("vkDestroyDevice", 0, device),
		implicit(&Command{Name: "vkGetDeviceQueue", Op: OpGet, Creates: ObjectQueue,
			Params: []Param{device}, Parent: 0, Target: -1, Pool: -1}),
		implicit(&Command{Name: "vkGetDeviceQueue2", Op: OpGet, Creates: ObjectQueue,
			Params: []Param{device}, Parent: 0, Target: -1, Pool: -1}),
		use("vkDeviceWaitIdle", device),
		use("vkQueueSubmit", queue, list("pCommandBuffers", ObjectCommandBuffer),
			list("pWaitSemaphores", ObjectSemaphore), list("pSignalSemaphores", ObjectSemaphore),
			opt("fence", ObjectFence)),
		use("vkQueueWaitIdle", queue),
		use("vkQueuePresentKHR", queue, list("pSwapchains", ObjectSwapchainKHR), list("pWaitSemaphores", ObjectSemaphore)),
	)

	// Memory.
	register(
		create("vkAllocateMemory", ObjectDeviceMemory, 0, device),
		destroy("vkFreeMemory", 1, device, p("memory", ObjectDeviceMemory)),
		use("vkMapMemory", device, p("memory", ObjectDeviceMemory)),
		use("vkUnmapMemory", device, p("memory", ObjectDeviceMemory)),
		use("vkFlushMappedMemoryRanges", device, list("pMemoryRanges", ObjectDeviceMemory)),
		use("vkInvalidateMappedMemoryRanges", device, list("pMemoryRanges", ObjectDeviceMemory)),
		use("vkBindBufferMemory", device, p("buffer", ObjectBuffer), p("memory", ObjectDeviceMemory)),
		use("vkBindImageMemory", device, p("image", ObjectImage), p("memory", ObjectDeviceMemory)),
		use("vkGetBufferMemoryRequirements", device, p("buffer", ObjectBuffer)),
		use("vkGetImageMemoryRequirements", device, p("image", ObjectImage)),
	)

	// Synchronization.
	pair(ObjectFence)
	pair(ObjectSemaphore)
	pair(ObjectEvent)
	register(
		use("vkResetFences", device, list("pFences", ObjectFence)),
		use("vkGetFenceStatus", device, p("fence", ObjectFence)),
		use("vkWaitForFences", device, list("pFences", ObjectFence)),
		use("vkGetEventStatus", device, p("event", ObjectEvent)),
		use("vkSetEvent", device, p("event", ObjectEvent)),
		use("vkResetEvent", device, p("event", ObjectEvent)),
	)

	// Resources.
	pair(ObjectBuffer)
	pair(ObjectImage)
	pair(ObjectBufferView, p("buffer", ObjectBuffer))
	pair(ObjectImageView, p("image", ObjectImage))
	pair(ObjectSampler)
	pair(ObjectQueryPool)
	register(use("vkGetQueryPoolResults", device, p("queryPool", ObjectQueryPool)))

	// Pipelines.
	pair(ObjectShaderModule)
	pair(ObjectPipelineCache)
	pair(ObjectRenderPass)
	pair(ObjectDescriptorSetLayout, list("pImmutableSamplers", ObjectSampler))
	pair(ObjectPipelineLayout, list("pSetLayouts", ObjectDescriptorSetLayout))
	pair(ObjectFramebuffer, p("renderPass", ObjectRenderPass), list("pAttachments", ObjectImageView))
	register(
		use("vkMergePipelineCaches", device, p("dstCache", ObjectPipelineCache), list("pSrcCaches", ObjectPipelineCache)),
		use("vkGetPipelineCacheData", device, p("pipelineCache", ObjectPipelineCache)),
		create("vkCreateGraphicsPipelines", ObjectPipeline, 0, device, opt("pipelineCache", ObjectPipelineCache),
			list("layout", ObjectPipelineLayout), list("renderPass", ObjectRenderPass), list("module", ObjectShaderModule)),
		create("vkCreateComputePipelines", ObjectPipeline, 0, device, opt("pipelineCache", ObjectPipelineCache),
			list("layout", ObjectPipelineLayout), list("module", ObjectShaderModule)),
		destroy("vkDestroyPipeline", 1, device, p("pipeline", ObjectPipeline)),
	)

	// Descriptors.
	pair(ObjectDescriptorPool)
	register(
		&Command{Name: "vkResetDescriptorPool", Op: OpReset, Creates: ObjectDescriptorSet,
			Params: []Param{device, p("descriptorPool", ObjectDescriptorPool)}, Parent: -1, Target: -1, Pool: 1},
		implicit(&Command{Name: "vkAllocateDescriptorSets", Op: OpAllocate, Creates: ObjectDescriptorSet,
			Params: []Param{device, p("descriptorPool", ObjectDescriptorPool), list("pSetLayouts", ObjectDescriptorSetLayout)},
			Parent: 1, Target: -1, Pool: 1}),
		&Command{Name: "vkFreeDescriptorSets", Op: OpFree,
			Params: []Param{device, p("descriptorPool", ObjectDescriptorPool), list("pDescriptorSets", ObjectDescriptorSet)},
			Parent: -1, Target: 2, Pool: 1},
		use("vkUpdateDescriptorSets", device, list("pDescriptorSets", ObjectDescriptorSet),
			list("pBufferInfo", ObjectBuffer), list("pImageInfo", ObjectImageView), list("pSamplers", ObjectSampler)),
	)

	// Command pools and buffers.
	pair(ObjectCommandPool)
	register(
		use("vkResetCommandPool", device, p("commandPool", ObjectCommandPool)),
		use("vkTrimCommandPool", device, p("commandPool", ObjectCommandPool)),
		implicit(&Command{Name: "vkAllocateCommandBuffers", Op: OpAllocate, Creates: ObjectCommandBuffer,
			Params: []Param{device, p("commandPool", ObjectCommandPool)}, Parent: 1, Target: -1, Pool: 1}),
		&Command{Name: "vkFreeCommandBuffers", Op: OpFree,
			Params: []Param{device, p("commandPool", ObjectCommandPool), list("pCommandBuffers", ObjectCommandBuffer)},
			Parent: -1, Target: 2, Pool: 1},
		use("vkBeginCommandBuffer", cb),
		use("vkEndCommandBuffer", cb),
		use("vkResetCommandBuffer", cb),
		use("vkCmdBindPipeline", cb, p("pipeline", ObjectPipeline)),
		use("vkCmdBindDescriptorSets", cb, p("layout", ObjectPipelineLayout), list("pDescriptorSets", ObjectDescriptorSet)),
		use("vkCmdBindVertexBuffers", cb, list("pBuffers", ObjectBuffer)),
		use("vkCmdBindIndexBuffer", cb, p("buffer", ObjectBuffer)),
		use("vkCmdPushConstants", cb, p("layout", ObjectPipelineLayout)),
		use("vkCmdDraw", cb),
		use("vkCmdDrawIndexed", cb),
		use("vkCmdDrawIndirect", cb, p("buffer", ObjectBuffer)),
		use("vkCmdDispatch", cb),
		use("vkCmdCopyBuffer", cb, p("srcBuffer", ObjectBuffer), p("dstBuffer", ObjectBuffer)),
		use("vkCmdCopyImage", cb, p("srcImage", ObjectImage), p("dstImage", ObjectImage)),
		use("vkCmdCopyBufferToImage", cb, p("srcBuffer", ObjectBuffer), p("dstImage", ObjectImage)),
		use("vkCmdPipelineBarrier", cb, list("pBufferMemoryBarriers", ObjectBuffer), list("pImageMemoryBarriers", ObjectImage)),
		use("vkCmdBeginRenderPass", cb, p("renderPass", ObjectRenderPass), p("framebuffer", ObjectFramebuffer)),
		use("vkCmdEndRenderPass", cb),
		use("vkCmdExecuteCommands", cb, list("pCommandBuffers", ObjectCommandBuffer)),
		use("vkCmdSetEvent", cb, p("event", ObjectEvent)),
		use("vkCmdResetEvent", cb, p("event", ObjectEvent)),
		use("vkCmdResetQueryPool", cb, p("queryPool", ObjectQueryPool)),
		use("vkCmdBeginQuery", cb, p("queryPool", ObjectQueryPool)),
		use("vkCmdEndQuery", cb, p("queryPool", ObjectQueryPool)),
	)

	// Swapchains.
	register(
		create("vkCreateSwapchainKHR", ObjectSwapchainKHR, 0, device, p("surface", ObjectSurfaceKHR),
			opt("oldSwapchain", ObjectSwapchainKHR)),
		destroy("vkDestroySwapchainKHR", 1, device, p("swapchain", ObjectSwapchainKHR)),
		implicit(&Command{Name: "vkGetSwapchainImagesKHR", Op: OpEnumerate, Creates: ObjectImage,
			Params: []Param{device, p("swapchain", ObjectSwapchainKHR)}, Parent: 1, Target: -1, Pool: -1}),
		use("vkAcquireNextImageKHR", device, p("swapchain", ObjectSwapchainKHR),
			opt("semaphore", ObjectSemaphore), opt("fence", ObjectFence)),
	)
}
